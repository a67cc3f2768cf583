package mqtt

import "fmt"

// Topic prefixes for the Hark MQTT surface.
//
// All topics live under the flat scheme: hark/{category}/{subject}
// This matches what the wall panels and the dashboard subscribe to.
const (
	// TopicPrefix is the base for all Hark topics.
	TopicPrefix = "hark"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "hark/system"

	// TopicPrefixTranscript is the base for transcript topics.
	TopicPrefixTranscript = "hark/transcript"

	// TopicPrefixSupervisor is the base for supervisor topics.
	TopicPrefixSupervisor = "hark/supervisor"
)

// Topics provides builders for Hark MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	sentenceTopic := topics.TranscriptSentence()
//	// Returns: "hark/transcript/sentence"
type Topics struct{}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
// Online/offline payloads and the LWT are published here, retained.
//
// Example: hark/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Transcript Topics
// =============================================================================

// TranscriptSentence returns the topic for finalised sentences.
//
// Example: hark/transcript/sentence
func (Topics) TranscriptSentence() string {
	return fmt.Sprintf("%s/sentence", TopicPrefixTranscript)
}

// TranscriptSession returns the topic for session lifecycle events
// (a new recogniser session after init or recovery).
//
// Example: hark/transcript/session
func (Topics) TranscriptSession() string {
	return fmt.Sprintf("%s/session", TopicPrefixTranscript)
}

// =============================================================================
// Supervisor Topics
// =============================================================================

// SupervisorHealth returns the topic for periodic health snapshots.
// Published retained so a late subscriber sees the last known state.
//
// Example: hark/supervisor/health
func (Topics) SupervisorHealth() string {
	return fmt.Sprintf("%s/health", TopicPrefixSupervisor)
}

// SupervisorEvent returns the topic for supervisor lifecycle events
// (state changes, recovery outcomes).
//
// Example: hark/supervisor/event
func (Topics) SupervisorEvent() string {
	return fmt.Sprintf("%s/event", TopicPrefixSupervisor)
}

// SupervisorCommand returns the topic commands are received on.
//
// Example: hark/supervisor/command
func (Topics) SupervisorCommand() string {
	return fmt.Sprintf("%s/command", TopicPrefixSupervisor)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllTranscripts returns a pattern matching all transcript topics.
//
// Pattern: hark/transcript/+
func (Topics) AllTranscripts() string {
	return fmt.Sprintf("%s/+", TopicPrefixTranscript)
}

// AllSupervisor returns a pattern matching all supervisor topics.
//
// Pattern: hark/supervisor/+
func (Topics) AllSupervisor() string {
	return fmt.Sprintf("%s/+", TopicPrefixSupervisor)
}

// AllTopics returns a pattern matching all Hark topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: hark/#
func (Topics) AllTopics() string {
	return "hark/#"
}
