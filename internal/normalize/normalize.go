package normalize

import "strings"

// Email returns a normalized form of an email address suitable for
// storage and comparisons. Normalization currently trims surrounding
// whitespace and lower-cases the address.
func Email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// SafeEmail turns an email into a document key: the normalized address with
// '.' and '@' replaced by '-'. Applying it to an already safe key is a no-op.
func SafeEmail(e string) string {
	return strings.NewReplacer(".", "-", "@", "-").Replace(Email(e))
}

// ProfilePictureFileName is the blob file name used for a user's avatar.
func ProfilePictureFileName(email string) string {
	return SafeEmail(email) + "_profile_picture.png"
}
