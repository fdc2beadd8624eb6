package books

import "mybooks/internal/models"

// Library returns every book.
func (s *Store) Library() []models.Book { return s.Books() }

// Bookshelf returns the finished books.
func (s *Store) Bookshelf() []models.Book { return Filter(s.Books(), OnBookshelf) }

// Wishlist returns the books not started yet.
func (s *Store) Wishlist() []models.Book { return Filter(s.Books(), OnWishlist) }

// Reading returns the books currently being read.
func (s *Store) Reading() []models.Book { return Filter(s.Books(), BeingRead) }

// Favorites returns the books flagged as favorite.
func (s *Store) Favorites() []models.Book { return Filter(s.Books(), IsFavorite) }

// View predicates.
func OnBookshelf(b models.Book) bool { return b.State.IsFinished() }
func OnWishlist(b models.Book) bool  { return b.State.IsUnread() }
func BeingRead(b models.Book) bool   { return b.State.IsReading() }
func IsFavorite(b models.Book) bool  { return b.Favorite }
func AnyBook(models.Book) bool       { return true }

// Stats summarizes the current collection.
func (s *Store) Stats() models.Stats { return ComputeStats(s.Books()) }

// Filter keeps the books matching keep, preserving order.
func Filter(books []models.Book, keep func(models.Book) bool) []models.Book {
	out := make([]models.Book, 0, len(books))
	for _, b := range books {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

// ComputeStats counts books per reading state and favorites.
func ComputeStats(books []models.Book) models.Stats {
	stats := models.Stats{Total: len(books)}
	for _, b := range books {
		switch {
		case b.State.IsUnread():
			stats.Unread++
		case b.State.IsReading():
			stats.Reading++
		case b.State.IsFinished():
			stats.Finished++
		default:
			stats.Custom++
		}
		if b.Favorite {
			stats.Favorites++
		}
	}
	return stats
}
