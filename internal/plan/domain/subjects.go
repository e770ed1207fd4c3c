package domain

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var subjectPriorityPattern = regexp.MustCompile(`^(.*?)\s*\((\d+)\)\s*$`)

// ParseSubjects splits the free-text subjects field on commas, semicolons
// and newlines. A trailing "(N)" is read as the subject's priority; a
// subject without one gets priority 0. Input order is kept.
func ParseSubjects(raw string) SubjectList {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})

	out := SubjectList{}
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		entry := SubjectPriority{Name: field}
		if m := subjectPriorityPattern.FindStringSubmatch(field); m != nil {
			if n, err := strconv.Atoi(m[2]); err == nil {
				entry.Name = strings.TrimSpace(m[1])
				entry.Priority = n
			}
		}
		if entry.Name == "" {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// ByPriority returns a copy ordered by descending priority, ties kept in
// input order.
func (s SubjectList) ByPriority() SubjectList {
	out := make(SubjectList, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// Names returns the subject names in list order.
func (s SubjectList) Names() []string {
	names := make([]string, len(s))
	for i, subject := range s {
		names[i] = subject.Name
	}
	return names
}

// MentionedIn returns the first subject whose name appears in text, or "".
func (s SubjectList) MentionedIn(text string) string {
	lower := strings.ToLower(text)
	for _, subject := range s {
		if subject.Name != "" && strings.Contains(lower, strings.ToLower(subject.Name)) {
			return subject.Name
		}
	}
	return ""
}
