// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/lovewrapped/internal/models"
)

// ErrBackend is returned by [FailingKV].
var ErrBackend = errors.New("backend unavailable")

// FailingKV satisfies store.KV and fails every call.
type FailingKV struct{}

func (FailingKV) Get(context.Context, string) (string, bool, error) { return "", false, ErrBackend }
func (FailingKV) Set(context.Context, string, string) error         { return ErrBackend }
func (FailingKV) Delete(context.Context, ...string) error           { return ErrBackend }
func (FailingKV) Close() error                                      { return nil }

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// RecordingNavigator records every URL it is asked to open.
type RecordingNavigator struct {
	mu   sync.Mutex
	URLs []string
	Err  error
}

func (n *RecordingNavigator) Navigate(url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.URLs = append(n.URLs, url)
	return n.Err
}

// Last returns the most recent URL or "".
func (n *RecordingNavigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.URLs) == 0 {
		return ""
	}
	return n.URLs[len(n.URLs)-1]
}

// SampleProfile builds a small valid profile with the given artist and track ids.
func SampleProfile(userID string, artistIDs, trackIDs []string, mood models.MoodVector) models.Profile {
	p := models.Profile{
		UserID:      userID,
		DisplayName: "User " + userID,
		TopArtists:  []models.Artist{},
		TopTracks:   []models.Track{},
		Mood:        mood,
	}
	for _, id := range artistIDs {
		p.TopArtists = append(p.TopArtists, models.Artist{ID: id, Name: "Artist " + id})
	}
	for _, id := range trackIDs {
		p.TopTracks = append(p.TopTracks, models.Track{
			ID:      id,
			Name:    "Track " + id,
			Artists: []models.Artist{},
		})
	}
	return p
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
