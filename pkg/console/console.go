// Package console is the interactive terminal front end of a
// reconciliation: it prints the differences of every entity and
// reads the operator's decisions, one line per answer.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/squareup/reconcile/pkg/reconcile"
)

const (
	ruleWidth   = 90
	bannerWidth = 30
)

type line struct {
	text string
	err  error
}

// Console reads answers from in and writes everything the
// operator sees to out.
type Console struct {
	in      *bufio.Reader
	out     io.Writer
	lines   chan line
	start   sync.Once
	pending []reconcile.Candidate
}

var (
	_ reconcile.Operator = &Console{}
	_ reconcile.Reporter = &Console{}
)

func New(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan line),
	}
}

// readLine returns the next line of input without its line ending.
// A final line without a newline is still returned; after that
// the error is io.EOF. Cancelling ctx abandons the wait.
func (c *Console) readLine(ctx context.Context) (string, error) {
	c.start.Do(func() {
		go c.readLoop()
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

func (c *Console) readLoop() {
	defer close(c.lines)
	for {
		text, err := c.in.ReadString('\n')
		if text != "" {
			c.lines <- line{text: strings.TrimRight(text, "\r\n")}
		}
		if err != nil {
			if err != io.EOF {
				c.lines <- line{err: err}
			}
			return
		}
	}
}

func (c *Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) rule(ch string) {
	c.printf("%s\n", strings.Repeat(ch, ruleWidth))
}

// Intro prints what the tool is about to do.
func (c *Console) Intro(source, tableName string, columns []string) {
	c.rule("-")
	c.printf("Comparing spreadsheet %s with table %s.\n", source, tableName)
	c.printf("Columns compared: %s\n", strings.Join(columns, ", "))
	c.printf("Every difference can be applied (Y), skipped (N) or the rest of the row skipped (S).\n")
	c.rule("-")
}

// PromptStartRow asks for the 0-based row offset to start from.
// A blank answer, or closed input, starts from the beginning.
func (c *Console) PromptStartRow(ctx context.Context, rows int) (int, error) {
	for {
		c.printf("\nStart from row offset (0-%d), blank for the beginning: ", rows)
		text, err := c.readLine(ctx)
		if err == io.EOF {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(text)
		if err != nil || n < 0 || n > rows {
			c.printf("%q is not a row offset between 0 and %d.\n", text, rows)
			continue
		}
		return n, nil
	}
}

// DecideRow asks whether the entity's differences should be reviewed.
// A is review, anything else skips the row.
func (c *Console) DecideRow(ctx context.Context, entityID string, candidates []reconcile.Candidate) (reconcile.RowDecision, error) {
	c.rule("-")
	c.printf("Press (A) to review %d difference(s) of %s, anything else to skip: ", len(candidates), entityID)
	text, err := c.readLine(ctx)
	if err != nil {
		return reconcile.SkipRow, err
	}
	if strings.ToUpper(strings.TrimSpace(text)) == "A" {
		return reconcile.ReviewRow, nil
	}
	return reconcile.SkipRow, nil
}

// DecideField asks about one candidate. Unrecognized answers
// return ErrOperatorInput so the question is asked again.
func (c *Console) DecideField(ctx context.Context, entityID string, candidate reconcile.Candidate) (reconcile.Decision, error) {
	c.printf("Update %s of %s to '%s'? (Y) yes (N) no (S) skip row: ", candidate.Field, entityID, candidate.Proposed)
	text, err := c.readLine(ctx)
	if err != nil {
		return reconcile.Skip, err
	}
	answer := strings.ToUpper(strings.TrimSpace(text))
	switch answer {
	case "Y":
		return reconcile.Apply, nil
	case "N":
		return reconcile.Skip, nil
	case "S":
		return reconcile.AbandonRow, nil
	}
	c.printf("Please answer Y, N or S.\n")
	return reconcile.Skip, fmt.Errorf("%w: %q", reconcile.ErrOperatorInput, answer)
}

func (c *Console) Banner(row int, entityID string) {
	c.printf("\n%s\n", strings.Repeat("=", bannerWidth))
	c.printf("Row #%d\n", row+1)
	c.printf("Entity: %s\n", entityID)
	c.printf("%s\n", strings.Repeat("=", bannerWidth))
}

func (c *Console) Difference(candidate reconcile.Candidate) {
	c.pending = append(c.pending, candidate)
}

// EndDiff renders the differences collected since the last call.
func (c *Console) EndDiff(entityID string, count int) {
	defer func() {
		c.pending = nil
	}()
	if count == 0 {
		c.printf("No differences for %s.\n", entityID)
		return
	}
	tbl := tablewriter.NewTable(c.out)
	tbl.Header("Column", "Persisted", "Spreadsheet")
	for _, candidate := range c.pending {
		if err := tbl.Append(candidate.Field, candidate.Persisted.String(), candidate.Proposed.String()); err != nil {
			c.printf("%s\n", candidate)
		}
	}
	if err := tbl.Render(); err != nil {
		c.printf("could not render differences: %v\n", err)
	}
}

func (c *Console) Summary(stats reconcile.Stats) {
	c.printf("\n")
	c.rule("-")
	tbl := tablewriter.NewTable(c.out)
	tbl.Header("Summary", "Count")
	for _, row := range []struct {
		name  string
		value int64
	}{
		{"entities visited", int64(stats.Entities)},
		{"entities with changes", int64(stats.EntitiesWithChanges)},
		{"differences", int64(stats.Candidates)},
		{"updates applied", int64(stats.Applied)},
		{"rows affected", stats.RowsAffected},
		{"differences skipped", int64(stats.Skipped)},
		{"differences abandoned", int64(stats.Abandoned)},
		{"update failures", int64(stats.UpdateFailures)},
		{"field read failures", int64(stats.FetchFailures)},
		{"rows without a key", int64(stats.SkippedRows)},
	} {
		if err := tbl.Append(row.name, strconv.FormatInt(row.value, 10)); err != nil {
			c.printf("%s: %d\n", row.name, row.value)
		}
	}
	if err := tbl.Render(); err != nil {
		c.printf("could not render summary: %v\n", err)
	}
	c.printf("Finished in %s.\n", stats.Duration.Round(time.Millisecond))
}
