package solver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"energy-sizing/internal/lp"
)

const defaultCBCBinary = "cbc"

// CBC runs the COIN-OR CBC command-line solver on an LP file.
type CBC struct {
	Binary    string
	TimeLimit time.Duration
	Verbose   bool
	WorkDir   string
	Logger    zerolog.Logger
}

func (c *CBC) Name() string { return BackendCBC }

func (c *CBC) binary() string {
	if c.Binary == "" {
		return defaultCBCBinary
	}
	return c.Binary
}

// Available reports whether the configured binary can be found.
func (c *CBC) Available() bool {
	_, err := exec.LookPath(c.binary())
	return err == nil
}

func (c *CBC) Solve(ctx context.Context, p *lp.Problem) (*lp.Result, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("cbc: %w", err)
	}
	bin, err := exec.LookPath(c.binary())
	if err != nil {
		return nil, fmt.Errorf("cbc: solver binary not found: %w", err)
	}
	dir, err := os.MkdirTemp(c.WorkDir, "sizing-cbc-*")
	if err != nil {
		return nil, fmt.Errorf("cbc: create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "model.sol")
	if err := writeLPFile(lpPath, p); err != nil {
		return nil, err
	}

	args := []string{lpPath}
	if c.TimeLimit > 0 {
		secs := int(math.Ceil(c.TimeLimit.Seconds()))
		args = append(args, "-sec", strconv.Itoa(secs))
	}
	args = append(args, "-solve", "-solution", solPath)

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	c.Logger.Debug().Str("problem", p.Name).Int("rows", len(p.Constraints)).Int("cols", len(p.Vars)).Msg("cbc started")
	runErr := cmd.Run()
	if c.Verbose {
		logLines(c.Logger, output.Bytes())
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("cbc: %w", ctxErr)
	}

	f, err := os.Open(solPath)
	if err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("cbc: run failed: %w: %s", runErr, tail(output.String(), 400))
		}
		return &lp.Result{Status: lp.NotSolved, Solver: c.Name(), Detail: "no solution file written"}, nil
	}
	defer f.Close()

	res, err := ParseSolution(f, p)
	if err != nil {
		return nil, err
	}
	res.Solver = c.Name()
	c.Logger.Debug().Str("problem", p.Name).Str("status", res.Status.String()).Dur("elapsed", time.Since(start)).Msg("cbc finished")
	return res, nil
}

func writeLPFile(path string, p *lp.Problem) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cbc: create lp file: %w", err)
	}
	if err := lp.WriteLP(f, p); err != nil {
		f.Close()
		return fmt.Errorf("cbc: write lp file: %w", err)
	}
	return f.Close()
}

// ParseSolution reads a CBC solution file. The first line carries the status;
// each further line is "index name value reduced-cost", optionally prefixed by
// "**" for values outside their bounds. Columns CBC omits are zero.
func ParseSolution(r io.Reader, p *lp.Problem) (*lp.Result, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("cbc: read solution: %w", err)
		}
		return nil, errors.New("cbc: empty solution file")
	}
	header := strings.TrimSpace(sc.Text())
	res := &lp.Result{Status: parseStatus(header), Detail: header}
	if obj, ok := parseObjective(header); ok {
		res.Objective = obj
	}

	index := make(map[string]int, len(p.Vars))
	for i := range p.Vars {
		index[p.ColumnName(i)] = i
	}
	values := make([]float64, len(p.Vars))
	line := 1
	for sc.Scan() {
		line++
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(sc.Text()), "**"))
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 3 {
			return nil, fmt.Errorf("cbc: solution line %d: expected at least 3 fields, got %q", line, text)
		}
		v, ok := index[fields[1]]
		if !ok {
			continue
		}
		val, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("cbc: solution line %d: %w", line, err)
		}
		values[v] = val
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("cbc: read solution: %w", err)
	}

	if res.Status == lp.Optimal {
		res.Values = values
		if _, ok := parseObjective(header); !ok {
			res.Objective = p.ObjectiveValue(values)
		}
	}
	return res, nil
}

func parseStatus(header string) lp.Status {
	lower := strings.ToLower(header)
	switch {
	case strings.HasPrefix(lower, "optimal"):
		return lp.Optimal
	case strings.Contains(lower, "infeasible"):
		return lp.Infeasible
	case strings.Contains(lower, "unbounded"):
		return lp.Unbounded
	case strings.HasPrefix(lower, "stopped"):
		return lp.NotSolved
	default:
		return lp.Undefined
	}
}

func parseObjective(header string) (float64, bool) {
	const marker = "objective value"
	i := strings.Index(strings.ToLower(header), marker)
	if i < 0 {
		return 0, false
	}
	fields := strings.Fields(header[i+len(marker):])
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func logLines(logger zerolog.Logger, out []byte) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			logger.Debug().Str("solver", BackendCBC).Msg(line)
		}
	}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
