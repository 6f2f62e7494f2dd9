package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topic prefixes.
//
// The relay uses the flat scheme shared by every Gray Logic bridge:
// graylogic/{protocol}/{category}/{universe}.
const (
	// TopicPrefix is the root of all Gray Logic topics.
	TopicPrefix = "graylogic"

	// TopicPrefixSACN is the base for relay topics.
	TopicPrefixSACN = "graylogic/sacn"
)

// Topics provides builders for the relay topics.
//
//	topics := mqtt.Topics{}
//	topics.Data(5)   // "graylogic/sacn/data/5"
//	topics.AllData() // "graylogic/sacn/data/+"
type Topics struct{}

// Join returns the topic for a universe's multicast join request.
//
// Example: graylogic/sacn/join/5
func (Topics) Join(universe int) string {
	return fmt.Sprintf("%s/join/%d", TopicPrefixSACN, universe)
}

// Data returns the topic the relay publishes decoded slots on.
//
// Example: graylogic/sacn/data/5
func (Topics) Data(universe int) string {
	return fmt.Sprintf("%s/data/%d", TopicPrefixSACN, universe)
}

// Send returns the topic for outbound slot data.
//
// Example: graylogic/sacn/send/5
func (Topics) Send(universe int) string {
	return fmt.Sprintf("%s/send/%d", TopicPrefixSACN, universe)
}

// Config returns the retained multicast configuration topic.
//
// Example: graylogic/sacn/config
func (Topics) Config() string {
	return TopicPrefixSACN + "/config"
}

// Ping returns the latency probe request topic.
//
// Example: graylogic/sacn/ping
func (Topics) Ping() string {
	return TopicPrefixSACN + "/ping"
}

// Pong returns the latency probe reply topic.
//
// Example: graylogic/sacn/pong
func (Topics) Pong() string {
	return TopicPrefixSACN + "/pong"
}

// Health returns the retained adapter health topic.
//
// Example: graylogic/health/sacn
func (Topics) Health() string {
	return TopicPrefix + "/health/sacn"
}

// AllData returns a pattern matching inbound data for every universe.
//
// Pattern: graylogic/sacn/data/+
func (Topics) AllData() string {
	return TopicPrefixSACN + "/data/+"
}

// UniverseFromTopic extracts the trailing universe number from a per-universe
// topic. ok is false when the last segment is not an integer.
func UniverseFromTopic(topic string) (universe int, ok bool) {
	idx := strings.LastIndexByte(topic, '/')
	if idx < 0 || idx == len(topic)-1 {
		return 0, false
	}
	u, err := strconv.Atoi(topic[idx+1:])
	if err != nil {
		return 0, false
	}
	return u, true
}
