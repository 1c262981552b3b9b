// Package sanitize redacts secret-like substrings from file content before it is merged.
package sanitize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/mdpack/internal/types"
)

const (
	patternFlags = "(?im)"

	maskedValueCutset = " \t\r'\""

	keywordPatternFormat     = `(?i)(%s)\s*[:=]\s*["']([^"']+)["']`
	keywordReplacement       = `${1} = "` + types.MaskToken + `"`
	keywordDescriptionFormat = "Keyword '%s'"
	ruleDescriptionFormat    = "%s (%dx)"

	warningInvalidPattern = "skipping sanitization pattern that does not compile"

	// maximumPasses bounds the fixpoint loop; a pass that changes nothing ends it earlier.
	maximumPasses = 4
)

// rule is one compiled redaction.
type rule struct {
	description string
	pattern     *regexp.Regexp
	template    string
	// keyword rules describe themselves without a count.
	keyword bool
}

// Sanitizer applies an ordered rule set. It is safe for concurrent use once built.
type Sanitizer struct {
	enabled bool
	rules   []rule
}

// New compiles the rule set. Patterns that do not compile are logged and left out.
func New(rules types.SanitizationRules, logger *zap.Logger) *Sanitizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	sanitizer := &Sanitizer{enabled: rules.Enabled}
	if !rules.Enabled {
		return sanitizer
	}
	for _, patternRule := range rules.Patterns {
		compiled, err := regexp.Compile(patternFlags + patternRule.Regex)
		if err != nil {
			logger.Warn(warningInvalidPattern, zap.String("name", patternRule.Name), zap.Error(err))
			continue
		}
		sanitizer.rules = append(sanitizer.rules, rule{
			description: patternRule.Name,
			pattern:     compiled,
			template:    ConvertTemplate(patternRule.Replacement),
		})
	}
	for _, keyword := range rules.Keywords {
		if strings.TrimSpace(keyword) == "" {
			continue
		}
		compiled := regexp.MustCompile(fmt.Sprintf(keywordPatternFormat, regexp.QuoteMeta(keyword)))
		sanitizer.rules = append(sanitizer.rules, rule{
			description: fmt.Sprintf(keywordDescriptionFormat, keyword),
			pattern:     compiled,
			template:    keywordReplacement,
			keyword:     true,
		})
	}
	return sanitizer
}

// Enabled reports whether the sanitizer rewrites anything at all.
func (sanitizer *Sanitizer) Enabled() bool {
	return sanitizer != nil && sanitizer.enabled
}

// Sanitize returns the redacted text and one description per rule that fired, in rule order.
// Running it on its own output changes nothing and reports nothing.
func (sanitizer *Sanitizer) Sanitize(text string) (string, []string) {
	if !sanitizer.Enabled() || len(sanitizer.rules) == 0 {
		return text, nil
	}
	counts := make([]int, len(sanitizer.rules))
	current := text
	for pass := 0; pass < maximumPasses; pass++ {
		changed := false
		for index, currentRule := range sanitizer.rules {
			replaced, replacements := currentRule.apply(current)
			if replacements == 0 {
				continue
			}
			counts[index] += replacements
			current = replaced
			changed = true
		}
		if !changed {
			break
		}
	}

	var descriptions []string
	for index, currentRule := range sanitizer.rules {
		if counts[index] == 0 {
			continue
		}
		if currentRule.keyword {
			descriptions = append(descriptions, currentRule.description)
			continue
		}
		descriptions = append(descriptions, fmt.Sprintf(ruleDescriptionFormat, currentRule.description, counts[index]))
	}
	return current, descriptions
}

// apply replaces every match that would actually change. A match with a captured value that
// is exactly the mask token, quotes aside, is left alone.
func (currentRule rule) apply(text string) (string, int) {
	locations := currentRule.pattern.FindAllStringSubmatchIndex(text, -1)
	if len(locations) == 0 {
		return text, 0
	}
	var builder strings.Builder
	lastEnd := 0
	replacements := 0
	for _, location := range locations {
		matched := text[location[0]:location[1]]
		if capturesMask(text, location) {
			continue
		}
		expanded := string(currentRule.pattern.ExpandString(nil, currentRule.template, text, location))
		if expanded == matched {
			continue
		}
		if replacements == 0 {
			builder.Grow(len(text))
		}
		builder.WriteString(text[lastEnd:location[0]])
		builder.WriteString(expanded)
		lastEnd = location[1]
		replacements++
	}
	if replacements == 0 {
		return text, 0
	}
	builder.WriteString(text[lastEnd:])
	return builder.String(), replacements
}

func capturesMask(text string, location []int) bool {
	for index := 2; index+1 < len(location); index += 2 {
		if location[index] >= 0 && strings.Trim(text[location[index]:location[index+1]], maskedValueCutset) == types.MaskToken {
			return true
		}
	}
	return false
}

// ConvertTemplate rewrites a backslash-style replacement (\1, \g<name>, \n) into the
// ${1} form understood by regexp.Expand. Literal dollar signs are escaped.
func ConvertTemplate(replacement string) string {
	var builder strings.Builder
	for index := 0; index < len(replacement); index++ {
		character := replacement[index]
		if character == '$' {
			builder.WriteString("$$")
			continue
		}
		if character != '\\' || index+1 >= len(replacement) {
			builder.WriteByte(character)
			continue
		}
		next := replacement[index+1]
		switch {
		case next >= '0' && next <= '9':
			end := index + 1
			for end < len(replacement) && end-index <= 2 && replacement[end] >= '0' && replacement[end] <= '9' {
				end++
			}
			groupNumber, _ := strconv.Atoi(replacement[index+1 : end])
			builder.WriteString("${" + strconv.Itoa(groupNumber) + "}")
			index = end - 1
		case next == 'g' && index+2 < len(replacement) && replacement[index+2] == '<':
			closing := strings.IndexByte(replacement[index+3:], '>')
			if closing < 0 {
				builder.WriteByte(character)
				continue
			}
			groupName := replacement[index+3 : index+3+closing]
			builder.WriteString("${" + groupName + "}")
			index = index + 3 + closing
		case next == 'n':
			builder.WriteByte('\n')
			index++
		case next == 't':
			builder.WriteByte('\t')
			index++
		case next == '\\':
			builder.WriteByte('\\')
			index++
		default:
			builder.WriteByte(character)
		}
	}
	return builder.String()
}
