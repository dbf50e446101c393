package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyPlaylist indicates the playlist parsed to zero segments
var ErrEmptyPlaylist = errors.New("no segments found in playlist")

// NetworkError wraps a connection level failure (DNS, TCP, TLS, body read).
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// FetchError is returned when the final response status is not 200.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %d", e.URL, e.StatusCode)
}

// TooManyRedirectsError is returned once a request chain exceeds the redirect limit.
type TooManyRedirectsError struct {
	URL   string
	Limit int
}

func (e *TooManyRedirectsError) Error() string {
	return fmt.Sprintf("stopped after %d redirects fetching %s", e.Limit, e.URL)
}

// EmptyPlaylistError carries the playlist URL that yielded no segments.
type EmptyPlaylistError struct {
	URL string
}

func (e *EmptyPlaylistError) Error() string {
	return fmt.Sprintf("%s: %v", e.URL, ErrEmptyPlaylist)
}

func (e *EmptyPlaylistError) Unwrap() error { return ErrEmptyPlaylist }
