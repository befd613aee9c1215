package redis

import "github.com/redis/go-redis/v9"

// DefaultNamespace prefixes every key this package writes
const DefaultNamespace = "sercha-corpus"

// keyspace builds namespaced keys so several deployments can share a server
type keyspace string

func (k keyspace) session(id string) string { return string(k) + ":session:" + id }
func (k keyspace) sessionToken(t string) string { return string(k) + ":session:token:" + t }
func (k keyspace) sessionRefresh(t string) string { return string(k) + ":session:refresh:" + t }
func (k keyspace) userSessions(userID string) string { return string(k) + ":user-sessions:" + userID }
func (k keyspace) lock(name string) string { return string(k) + ":lock:" + name }
func (k keyspace) events(ownerID string) string { return string(k) + ":events:" + ownerID }

func newKeyspace(namespace string) keyspace {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return keyspace(namespace)
}

// ParseURL builds a client from a redis:// URL
func ParseURL(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
