package gmail

import (
	"strings"
)

// gmailDate is the date format of the after: and before: operators.
const gmailDate = "2006/01/02"

// String renders c in Gmail search syntax. Free text comes first, followed by
// the operators in a fixed order.
func (c Criteria) String() string {
	var parts []string
	add := func(op, v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		parts = append(parts, op+quote(v))
	}

	if q := strings.TrimSpace(c.Query); q != "" {
		parts = append(parts, q)
	}
	add("from:", c.From)
	add("to:", c.To)
	add("subject:", c.Subject)
	if c.HasAttachment {
		parts = append(parts, "has:attachment")
	}
	if c.IsUnread {
		parts = append(parts, "is:unread")
	}
	add("label:", c.Label)
	if !c.After.IsZero() {
		parts = append(parts, "after:"+c.After.Format(gmailDate))
	}
	if !c.Before.IsZero() {
		parts = append(parts, "before:"+c.Before.Format(gmailDate))
	}
	return strings.Join(parts, " ")
}

// quote wraps operator values containing whitespace so Gmail treats them as
// one term.
func quote(v string) string {
	if !strings.ContainsAny(v, " \t") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, "") + `"`
}
