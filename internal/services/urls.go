package services

import "strings"

// ViewURL is the public address of an output.
func ViewURL(base, publicID string) string {
	return strings.TrimRight(base, "/") + "/output/" + publicID
}

// DeleteURL is the address that deletes an output; only its creator gets it.
func DeleteURL(base, token string) string {
	return strings.TrimRight(base, "/") + "/delete/" + token
}
