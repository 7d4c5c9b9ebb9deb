package attribution

import "time"

// MapStore is an in-memory Store for requests that carry no visitor
// session, such as server-to-server hooks and connectivity tests.
type MapStore map[string]string

func (m MapStore) Get(key string) string {
	return m[key]
}

func (m MapStore) Set(key, value string, _ time.Duration) {
	m[key] = value
}
