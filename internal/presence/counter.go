package presence

import (
	"fmt"
	"strconv"
	"strings"
)

// CountMode selects how concurrent devices are counted for a user.
type CountMode int

const (
	// CountConnections counts every alive token across all nodes.
	CountConnections CountMode = 0
	// CountDistinctIPs counts unique ip addresses across all nodes.
	CountDistinctIPs CountMode = 1
)

// ParseCountMode validates a raw mode value.
func ParseCountMode(v int) (CountMode, error) {
	switch CountMode(v) {
	case CountConnections, CountDistinctIPs:
		return CountMode(v), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidCountMode, v)
}

// ParseCountModeString parses the textual form stored in settings.
func ParseCountModeString(raw string) (CountMode, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCountMode, raw)
	}
	return ParseCountMode(v)
}

func (m CountMode) String() string {
	switch m {
	case CountConnections:
		return "connections"
	case CountDistinctIPs:
		return "distinct_ips"
	}
	return "invalid(" + strconv.Itoa(int(m)) + ")"
}

// Count applies the mode to a payload.
func (m CountMode) Count(p Payload) (int, error) {
	switch m {
	case CountConnections:
		total := 0
		for _, e := range p.Entries {
			total += len(e.AliveIPs)
		}
		return total, nil
	case CountDistinctIPs:
		seen := make(map[string]struct{})
		for _, e := range p.Entries {
			for _, token := range e.AliveIPs {
				ip := aliveIP(token)
				if ip == "" {
					continue
				}
				seen[ip] = struct{}{}
			}
		}
		return len(seen), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidCountMode, int(m))
}

// CountMany applies the mode to every payload of a batch.
func (m CountMode) CountMany(payloads map[int64]Payload) (map[int64]int, error) {
	result := make(map[int64]int, len(payloads))
	for userID, p := range payloads {
		n, err := m.Count(p)
		if err != nil {
			return nil, err
		}
		result[userID] = n
	}
	return result, nil
}
