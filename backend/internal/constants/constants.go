package constants

// Topic constants
const (
	// DefaultTopic is researched first and whenever the graph offers nothing better
	DefaultTopic = "Artificial Intelligence"
)

// Knowledge graph constants
const (
	// SentinelDescription marks a concept that has not been researched on its own yet
	SentinelDescription = "A concept related to"

	// RelatedToLabel is the label of every inferred relationship
	RelatedToLabel = "is related to"

	// SummaryDescriptionRunes is how much of the summary goes into a new concept's description
	SummaryDescriptionRunes = 50
)

// Research constants
const (
	// MaxResearchSources is the number of search results fetched per topic
	MaxResearchSources = 3

	// MaxFetchBytes caps how much of a page body is read
	MaxFetchBytes = 2 << 20

	// MaxSearchResults caps how many results a search renders
	MaxSearchResults = 10
)

// Synthesis constants
const (
	// SummaryLines is the number of non-empty lines kept as the summary
	SummaryLines = 5

	// MaxConcepts is the number of top-frequency tokens kept per synthesis
	MaxConcepts = 10

	// NoResearchSummary is the summary of a degenerate synthesis
	NoResearchSummary = "No research data."
)

// Validation constants
const (
	// MinCorroboratingResults is the exclusive lower bound of result markers
	// a confirmation query needs for a relationship to be accepted
	MinCorroboratingResults = 1
)

// Discord constants
const (
	// DiscordMaxMessageLength is the maximum character limit for Discord messages
	DiscordMaxMessageLength = 2000
)
