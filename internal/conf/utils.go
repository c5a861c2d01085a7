package conf

import "strings"

// SanitizeFileName makes a species label safe to use in a clip file name.
func SanitizeFileName(name string) string {
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "-",
		"\\", "-",
		":", "-",
		"'", "",
		"\"", "",
	)
	return replacer.Replace(name)
}
