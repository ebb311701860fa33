package userclient

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"cyberguard/internal/quiz"
)

func promptAnswer(reader *bufio.Reader, out io.Writer, optionCount int) (int, bool) {
	if optionCount < 1 {
		return -1, false
	}

	maxLetter := quiz.OptionLetter(optionCount - 1)
	fmt.Fprintf(out, "Your answer (A-%s): ", maxLetter)

	line, err := reader.ReadString('\n')
	if err != nil {
		return -1, false
	}

	idx := quiz.LetterIndex(line, optionCount)
	return idx, idx >= 0
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  help")
	fmt.Fprintln(out, "  categories")
	fmt.Fprintln(out, "  train <category> [count]")
	fmt.Fprintln(out, "  stats")
	fmt.Fprintln(out, "  badges")
	fmt.Fprintln(out, "  unlock <badge_id>")
	fmt.Fprintln(out, "  certify <category>")
	fmt.Fprintln(out, "  leaderboard [category] [limit]")
	fmt.Fprintln(out, "  exit")
}

func parsePositiveLimit(args []string, index int, defaultValue int) (int, error) {
	if len(args) <= index {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(args[index])
	if err != nil || value <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return value, nil
}

// parseLeaderboardArgs accepts "leaderboard", "leaderboard 5",
// "leaderboard phishing" and "leaderboard phishing 5".
func parseLeaderboardArgs(args []string, defaultLimit int) (string, int, error) {
	rest := args[1:]
	if len(rest) == 0 {
		return "", defaultLimit, nil
	}
	if value, err := strconv.Atoi(rest[0]); err == nil {
		if len(rest) > 1 {
			return "", 0, errors.New("category must come before limit")
		}
		return "", value, nil
	}
	if len(rest) == 1 {
		return rest[0], defaultLimit, nil
	}
	value, err := strconv.Atoi(rest[1])
	if err != nil {
		return "", 0, errors.New("limit must be an integer")
	}
	return rest[0], value, nil
}

func formatPercent(value float64) string {
	return strconv.FormatFloat(value, 'f', 1, 64) + "%"
}

func describeClientError(err error, serverURL string) error {
	if errors.Is(err, ErrServiceUnavailable) {
		return fmt.Errorf("training service unavailable at %s", serverURL)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("not signed in: %s", apiErr.Message)
	}
	return err
}
