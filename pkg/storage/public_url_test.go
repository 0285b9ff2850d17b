package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPublicURLResolverRejectsBadBase(t *testing.T) {
	_, err := NewPublicURLResolver("")
	require.Error(t, err)

	_, err = NewPublicURLResolver("not a url")
	require.Error(t, err)
}

func TestPublicURLJoinsAndEscapes(t *testing.T) {
	resolver, err := NewPublicURLResolver("http://localhost:8080/media/")
	require.NoError(t, err)

	url := resolver.PublicURL("requests/user-1/1700000000-abc123-exam timetable.png")
	require.Equal(t, "http://localhost:8080/media/requests/user-1/1700000000-abc123-exam%20timetable.png", url)

	// The locator is stable: resolving the same path twice yields the same string.
	require.Equal(t, url, resolver.PublicURL("requests/user-1/1700000000-abc123-exam timetable.png"))
}
