package bot

import "mybooks/internal/models"

// SuggestNext picks the next book to read from the wishlist.
//
// Rules:
// 1. Only books not started yet are candidates
// 2. Favorites go first
// 3. Otherwise the book added earliest wins
//
// pos is the 1-based library position of the suggestion.
func SuggestNext(library []models.Book) (pos int, book models.Book, ok bool) {
	first := -1
	for i, b := range library {
		if !b.State.IsUnread() {
			continue
		}
		if b.Favorite {
			return i + 1, b, true
		}
		if first < 0 {
			first = i
		}
	}
	if first < 0 {
		return 0, models.Book{}, false
	}
	return first + 1, library[first], true
}
