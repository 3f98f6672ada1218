package models

import "unicode/utf8"

// LessID is the ascending order of remote ids wherever ids break a tie:
// shorter ids first, then byte order. For decimal ids without leading zeros,
// which is what the remote hands out, that is numeric order.
func LessID(a, b string) bool {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

// IDOrder returns the ORDER BY terms that sort column the way LessID does.
func IDOrder(column string) string {
	return "length(" + column + ") ASC, " + column + " ASC"
}
