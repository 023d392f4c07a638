package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console asks the operator for input on a terminal.
type Console struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewConsole wraps the given reader and writer.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Banner prints a highlighted notice followed by a terminal bell.
func (c *Console) Banner(lines ...string) {
	bar := strings.Repeat("!", 50)
	fmt.Fprintf(c.out, "\n%s\n", bar)
	for _, l := range lines {
		fmt.Fprintln(c.out, l)
	}
	fmt.Fprintf(c.out, "%s\n\a\n", bar)
}

// Ask prints prompt and returns the trimmed answer line.
func (c *Console) Ask(prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// WaitForEnter blocks until the operator presses Enter.
func (c *Console) WaitForEnter(prompt string) error {
	_, err := c.Ask(prompt)
	return err
}

// Confirm returns false only when the operator answers "n".
func (c *Console) Confirm(prompt string) (bool, error) {
	ans, err := c.Ask(prompt)
	if err != nil {
		return false, err
	}
	return strings.ToLower(ans) != "n", nil
}
