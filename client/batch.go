package client

import "strings"

// TxBatch is an ordered list of transaction groups, each a list of
// statement texts executed together.
type TxBatch [][]string

// Text is a single statement text.
type Text string

// Sendable is what AsyncSend accepts: a Text or a TxBatch.
type Sendable interface {
	sendText() string
}

func (t Text) sendText() string { return string(t) }

func (b TxBatch) sendText() string { return b.Concat() }

// Concat renders the batch as one multi-statement string. Groups with more
// than one statement are wrapped as BEGIN;s1;s2;COMMIT; and single-statement
// groups run as s1; in autocommit. Empty groups are skipped.
func (b TxBatch) Concat() string {
	var sb strings.Builder
	for _, group := range b {
		switch len(group) {
		case 0:
			continue
		case 1:
			sb.WriteString(group[0])
			sb.WriteString(";")
		default:
			sb.WriteString("BEGIN;")
			sb.WriteString(strings.Join(group, ";"))
			sb.WriteString(";COMMIT;")
		}
	}
	return sb.String()
}

// Statements flattens the batch in order.
func (b TxBatch) Statements() []string {
	var out []string
	for _, group := range b {
		out = append(out, group...)
	}
	return out
}

// joinBatch renders statements for error reports.
func joinBatch(statements []string) string {
	return strings.Join(statements, "; ")
}
