//go:build !nomagic
// +build !nomagic

// This requires libmagic. Build with -tags=nomagic on machines that
// don't have it.
package platform

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/rakyll/magicmime"
)

var MagicMimeEnabled = true

// magicMime is the MimeMagic database. We want
// just one copy of this open at a time.
var magicMime *magicmime.Magic

// The underlying C library sometimes fails or returns nonsense
// (unprintable characters) when accessed by multiple goroutines at
// once, so all access goes through this mutex. The calls are fast.
var mutex = &sync.Mutex{}

var validMimeType = regexp.MustCompile(`^[\w.+-]+/[\w.+-]+$`)

// GuessMimeType returns the content type of the file at absPath, or
// application/octet-stream if libmagic has no usable answer.
func GuessMimeType(absPath string) (mimeType string, err error) {
	mutex.Lock()
	defer mutex.Unlock()

	// Open the Mime Magic DB only once.
	if magicMime == nil {
		magicMime, err = magicmime.New(magicmime.MAGIC_MIME_TYPE)
		if err != nil {
			magicMime = nil
			return "", fmt.Errorf("Error opening MimeMagic database: %v", err)
		}
	}

	// In some cases, MagicMime returns an empty string, and in rare
	// cases it returns unprintable characters. So we default to the
	// safe application/octet-stream and use the guess only if it
	// looks legit.
	mimeType = DefaultMimeType
	guessedType, _ := magicMime.TypeByFile(absPath)
	if guessedType != "" && validMimeType.MatchString(guessedType) {
		mimeType = guessedType
	}
	return mimeType, nil
}
