package bench

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// InputError is a prompt answer that is not a non-negative integer.
type InputError struct {
	Input string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid request count %q: %v", e.Input, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

var errNegative = errors.New("must not be negative")

// ParseRequestCount validates one line of prompt input.
func ParseRequestCount(line string) (int, error) {
	s := strings.TrimSpace(line)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &InputError{Input: s, Err: err}
	}
	if n < 0 {
		return 0, &InputError{Input: s, Err: errNegative}
	}
	return n, nil
}

// ReadRequestCount asks for the number of requests on out and reads answers
// from in until one parses. Invalid answers re-prompt; running out of input
// returns io.ErrUnexpectedEOF.
func ReadRequestCount(in io.Reader, out io.Writer) (int, error) {
	sc := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, "Enter the number of requests: ")
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return 0, fmt.Errorf("read request count: %w", err)
			}
			return 0, io.ErrUnexpectedEOF
		}
		n, err := ParseRequestCount(sc.Text())
		if err != nil {
			var ie *InputError
			if errors.As(err, &ie) {
				_, _ = fmt.Fprintln(out, "Please enter a whole number.")
				continue
			}
			return 0, err
		}
		return n, nil
	}
}
