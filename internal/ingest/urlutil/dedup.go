package urlutil

import "sync"

// Deduplicator tracks canonical URLs and content hashes already observed in a
// crawl session. Both sets grow monotonically for the session's lifetime.
type Deduplicator struct {
	mu          sync.Mutex
	seenURLs    map[string]struct{}
	seenContent map[string]struct{}
}

// NewDeduplicator returns an empty Deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		seenURLs:    make(map[string]struct{}),
		seenContent: make(map[string]struct{}),
	}
}

// SeenURL reports whether the canonical form of url was marked before.
func (d *Deduplicator) SeenURL(rawURL string) bool {
	key := Canonicalize(rawURL, false)
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seenURLs[key]
	return ok
}

// MarkURL records the canonical form of url as seen.
func (d *Deduplicator) MarkURL(rawURL string) {
	key := Canonicalize(rawURL, false)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seenURLs[key] = struct{}{}
}

// SeenContent reports whether identical content was marked before.
func (d *Deduplicator) SeenContent(content []byte) bool {
	key := ContentHash(content)
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seenContent[key]
	return ok
}

// MarkContent records the content hash as seen and returns it.
func (d *Deduplicator) MarkContent(content []byte) string {
	key := ContentHash(content)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seenContent[key] = struct{}{}
	return key
}

// Record marks the URL and, when content is non-nil, the content as seen in
// one atomic step. It reports whether each was new. A nil content always
// reports contentWasNew=true so callers can treat "no body yet" uniformly.
func (d *Deduplicator) Record(rawURL string, content []byte) (urlWasNew, contentWasNew bool) {
	urlKey := Canonicalize(rawURL, false)

	d.mu.Lock()
	defer d.mu.Unlock()

	_, urlSeen := d.seenURLs[urlKey]
	d.seenURLs[urlKey] = struct{}{}

	contentWasNew = true
	if content != nil {
		contentKey := ContentHash(content)
		_, contentSeen := d.seenContent[contentKey]
		d.seenContent[contentKey] = struct{}{}
		contentWasNew = !contentSeen
	}
	return !urlSeen, contentWasNew
}

// URLCount returns the number of distinct canonical URLs seen.
func (d *Deduplicator) URLCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seenURLs)
}

// ContentCount returns the number of distinct content hashes seen.
func (d *Deduplicator) ContentCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seenContent)
}
