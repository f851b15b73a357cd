package credential

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"

	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

const (
	// MaxTypoDistance is the maximum Levenshtein distance for a word suggestion.
	MaxTypoDistance = 2

	// DefaultWordCount is the length of generated onboarding phrases.
	DefaultWordCount = 12
)

var (
	// ErrInvalidWordCount indicates the mnemonic must be 12 or 24 words.
	ErrInvalidWordCount = onboarderr.WithSuggestion(onboarderr.ErrInvalidInput, "word count must be 12 or 24")

	whitespaceRegex   = regexp.MustCompile(`\s+`)
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)
	bulletListRegex   = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)
)

// GenerateMnemonic creates a new BIP39 mnemonic phrase of 12 or 24 words.
func GenerateMnemonic(wordCount int) (string, error) {
	var bitSize int
	switch wordCount {
	case 12:
		bitSize = 128
	case 24:
		bitSize = 256
	default:
		return "", ErrInvalidWordCount
	}

	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", err
	}

	return bip39.NewMnemonic(entropy)
}

// NormalizeMnemonic lowercases the phrase, strips list markers and commas,
// and collapses whitespace to single spaces.
func NormalizeMnemonic(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// ValidateMnemonic checks word count, word list membership and checksum.
// The returned error carries typo suggestions when words are misspelled.
func ValidateMnemonic(mnemonic string) error {
	normalized := NormalizeMnemonic(mnemonic)
	if normalized == "" {
		return onboarderr.ErrInvalidMnemonic
	}

	words := strings.Fields(normalized)
	if len(words) != 12 && len(words) != 24 {
		return onboarderr.WithDetails(onboarderr.ErrInvalidMnemonic, map[string]string{
			"words": strconv.Itoa(len(words)),
		})
	}

	if typos := DetectTypos(normalized); len(typos) > 0 {
		return onboarderr.WithSuggestion(onboarderr.ErrInvalidMnemonic, FormatTypoSuggestions(typos))
	}

	if _, err := bip39.MnemonicToByteArray(normalized); err != nil {
		return onboarderr.WithSuggestion(onboarderr.ErrInvalidMnemonic, "checksum does not match, check the word order")
	}

	return nil
}

// IsValidWord checks if a word is in the BIP39 English word list.
func IsValidWord(word string) bool {
	_, ok := bip39.GetWordIndex(strings.ToLower(word))
	return ok
}

// TypoInfo describes a word that is not in the BIP39 word list.
type TypoInfo struct {
	Index      int
	Word       string
	Suggestion string
	Distance   int
}

// SuggestWord returns the closest BIP39 word, or "" if none is within MaxTypoDistance.
func SuggestWord(input string) string {
	input = strings.ToLower(input)

	minDist := math.MaxInt
	var suggestion string
	for _, word := range bip39.GetWordList() {
		dist := levenshtein.ComputeDistance(input, word)
		if dist == 0 {
			return word
		}
		if dist < minDist {
			minDist = dist
			suggestion = word
		}
	}

	if minDist <= MaxTypoDistance {
		return suggestion
	}
	return ""
}

// DetectTypos returns every word of the phrase that is not a BIP39 word.
func DetectTypos(mnemonic string) []TypoInfo {
	var typos []TypoInfo
	for i, word := range strings.Fields(NormalizeMnemonic(mnemonic)) {
		if IsValidWord(word) {
			continue
		}
		info := TypoInfo{Index: i, Word: word, Suggestion: SuggestWord(word)}
		if info.Suggestion != "" {
			info.Distance = levenshtein.ComputeDistance(word, info.Suggestion)
		}
		typos = append(typos, info)
	}
	return typos
}

// FormatTypoSuggestions renders typos one per line with 1-based positions.
func FormatTypoSuggestions(typos []TypoInfo) string {
	lines := make([]string, 0, len(typos))
	for _, typo := range typos {
		if typo.Suggestion != "" {
			lines = append(lines, fmt.Sprintf("word %d: '%s' - did you mean '%s'?", typo.Index+1, typo.Word, typo.Suggestion))
			continue
		}
		lines = append(lines, fmt.Sprintf("word %d: '%s' is not a valid BIP39 word", typo.Index+1, typo.Word))
	}
	return strings.Join(lines, "\n")
}
