package stream

import (
	"reflect"
	"time"

	"github.com/kilianp07/streamhub/core/logger"
)

type hubConfig struct {
	log        logger.Logger
	events     Publisher
	match      TagMatcher
	debug      bool
	defaultTTL time.Duration
}

// Option configures a Hub.
type Option func(*hubConfig)

// WithLogger sets the logger used for debug tracing.
func WithLogger(l logger.Logger) Option {
	return func(c *hubConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithDebug enables verbose tracing from the start.
func WithDebug(on bool) Option {
	return func(c *hubConfig) { c.debug = on }
}

// WithEventBus publishes hub events to p.
func WithEventBus(p Publisher) Option {
	return func(c *hubConfig) { c.events = p }
}

// WithTagMatcher replaces the rule deciding whether a stream tag matches a
// proxy tag.
func WithTagMatcher(m TagMatcher) Option {
	return func(c *hubConfig) {
		if m != nil {
			c.match = m
		}
	}
}

// WithDefaultCacheTTL caches fallback streams for ttl after their last use
// instead of for as long as they are reachable.
func WithDefaultCacheTTL(ttl time.Duration) Option {
	return func(c *hubConfig) { c.defaultTTL = ttl }
}

// TagMatcher reports whether a stream reporting streamTag is reached by a
// proxy configured with proxyTag.
type TagMatcher func(proxyTag, streamTag any) bool

// EqualTags is the default TagMatcher: tags match when they are equal.
// nil only matches nil and uncomparable tags never match.
func EqualTags(proxyTag, streamTag any) bool {
	if proxyTag == nil || streamTag == nil {
		return proxyTag == nil && streamTag == nil
	}
	if reflect.TypeOf(proxyTag) != reflect.TypeOf(streamTag) || !comparableTag(proxyTag) || !comparableTag(streamTag) {
		return false
	}
	return proxyTag == streamTag
}

// comparableTag reports whether tag can be compared with == without
// panicking. The dynamic values of interface fields are checked too.
func comparableTag(tag any) bool {
	return tag == nil || reflect.ValueOf(tag).Comparable()
}

type proxyConfig struct {
	tag      any
	callback DispatchCallback
	filter   ResultFilter
	sticky   bool
}

// ProxyOption configures a Proxy.
type ProxyOption func(*proxyConfig)

// WithTag sets the proxy tag. Only streams reporting an equal tag are
// notified.
func WithTag(tag any) ProxyOption {
	return func(c *proxyConfig) { c.tag = tag }
}

// WithDispatchCallback intercepts the notification of every stream.
func WithDispatchCallback(cb DispatchCallback) ProxyOption {
	return func(c *proxyConfig) { c.callback = cb }
}

// WithResultFilter reduces the results of all notified streams to the
// value returned to the caller.
func WithResultFilter(f ResultFilter) ProxyOption {
	return func(c *proxyConfig) { c.filter = f }
}

// WithSticky records void calls so streams registered later can replay them.
func WithSticky() ProxyOption {
	return func(c *proxyConfig) { c.sticky = true }
}
