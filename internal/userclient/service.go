package userclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cyberguard/internal/quiz"
)

const (
	defaultServer            = "http://127.0.0.1:8080"
	defaultQuestionCount     = 10
	defaultLeaderboardLimit  = 10
	defaultHTTPTimeout       = 5 * time.Second
	defaultMaxInvalidAnswers = 3
)

type Config struct {
	Token             string
	ServerURL         string
	QuestionCount     int
	LeaderboardLimit  int
	MaxInvalidAnswers int
	HTTPTimeout       time.Duration
	// HTTPClient overrides the client built from HTTPTimeout.
	HTTPClient *http.Client
	Now        func() time.Time
}

type session struct {
	client            *HTTPClient
	reader            *bufio.Reader
	out               io.Writer
	serverURL         string
	questionCount     int
	leaderboardLimit  int
	maxInvalidAnswers int
	now               func() time.Time
}

func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return errors.New("token is required")
	}

	serverURL := strings.TrimSpace(cfg.ServerURL)
	if serverURL == "" {
		serverURL = defaultServer
	}

	s := session{
		reader:            bufio.NewReader(in),
		out:               out,
		serverURL:         serverURL,
		questionCount:     cfg.QuestionCount,
		leaderboardLimit:  cfg.LeaderboardLimit,
		maxInvalidAnswers: cfg.MaxInvalidAnswers,
		now:               cfg.Now,
	}
	if s.questionCount <= 0 {
		s.questionCount = defaultQuestionCount
	}
	if s.leaderboardLimit == 0 {
		s.leaderboardLimit = defaultLeaderboardLimit
	}
	if s.maxInvalidAnswers <= 0 {
		s.maxInvalidAnswers = defaultMaxInvalidAnswers
	}
	if s.now == nil {
		s.now = time.Now
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	s.client = NewHTTPClient(serverURL, token, httpClient)

	fmt.Fprintf(out, "cyberguard trainer\nserver=%s\n\n", serverURL)
	printHelp(out)

	for {
		fmt.Fprint(out, "\n> ")
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args := strings.Fields(line)
		command := strings.ToLower(args[0])

		var cmdErr error
		switch command {
		case "help":
			printHelp(out)
		case "exit", "quit":
			return nil
		case "categories":
			cmdErr = s.runCategories(ctx)
		case "train":
			if len(args) < 2 || len(args) > 3 {
				fmt.Fprintln(out, "usage: train <category> [count]")
				continue
			}
			count, parseErr := parsePositiveLimit(args, 2, s.questionCount)
			if parseErr != nil {
				fmt.Fprintf(out, "invalid question count: %v\n", parseErr)
				continue
			}
			cmdErr = s.runTrain(ctx, args[1], count)
		case "stats":
			cmdErr = s.runStats(ctx)
		case "badges":
			cmdErr = s.runBadges(ctx)
		case "unlock":
			if len(args) != 2 {
				fmt.Fprintln(out, "usage: unlock <badge_id>")
				continue
			}
			cmdErr = s.runUnlock(ctx, args[1])
		case "certify":
			if len(args) != 2 {
				fmt.Fprintln(out, "usage: certify <category>")
				continue
			}
			cmdErr = s.runCertify(ctx, args[1])
		case "leaderboard":
			category, limit, parseErr := parseLeaderboardArgs(args, s.leaderboardLimit)
			if parseErr != nil {
				fmt.Fprintf(out, "invalid leaderboard arguments: %v\n", parseErr)
				continue
			}
			cmdErr = s.runLeaderboard(ctx, category, limit)
		default:
			fmt.Fprintln(out, "unknown command. type 'help' for usage.")
		}
		if cmdErr != nil {
			fmt.Fprintf(out, "error: %v\n", describeClientError(cmdErr, s.serverURL))
		}
	}
}

func (s *session) runCategories(ctx context.Context) error {
	categories, err := s.client.Categories(ctx)
	if err != nil {
		return err
	}
	for _, category := range categories {
		fmt.Fprintf(s.out, "%-20s %s\n", category.ID, category.Description)
	}
	return nil
}

func (s *session) runTrain(ctx context.Context, category string, count int) error {
	payload, err := s.client.Questions(ctx, category, count)
	if err != nil {
		return err
	}
	if len(payload.Questions) == 0 {
		fmt.Fprintf(s.out, "No questions available for %s.\n", category)
		return nil
	}

	answered, correct := 0, 0
	for idx, question := range payload.Questions {
		fmt.Fprintln(s.out)
		fmt.Fprintf(s.out, "Q%d [%s, %d pts]: %s\n\n", idx+1, question.Difficulty, question.Points, question.Question)
		for _, option := range question.Options {
			fmt.Fprintf(s.out, "%s. %s\n", option.Letter, option.Text)
		}
		fmt.Fprintln(s.out)

		started := s.now()
		selected, ok := s.readAnswer(len(question.Options))
		if !ok {
			fmt.Fprintln(s.out, "Skipping question after multiple invalid responses.")
			continue
		}

		outcome, err := s.client.SubmitAnswer(ctx, question, selected, int(s.now().Sub(started).Seconds()))
		if err != nil {
			return err
		}
		answered++
		if outcome.Correct {
			correct++
			fmt.Fprintf(s.out, "Correct! +%d\n", outcome.Points)
		} else {
			fmt.Fprintf(s.out, "Wrong. Correct answer was %s. %s\n", quiz.OptionLetter(outcome.CorrectIndex), outcome.CorrectText)
		}
		if text := strings.TrimSpace(outcome.Feedback.Text); text != "" {
			fmt.Fprintln(s.out, text)
		}
		for _, badgeID := range outcome.NewBadges {
			fmt.Fprintf(s.out, "Badge unlocked: %s\n", badgeName(badgeID))
		}
	}

	fmt.Fprintln(s.out)
	if answered == 0 {
		fmt.Fprintln(s.out, "No answers recorded in this run.")
		return nil
	}
	fmt.Fprintf(s.out, "Score: %d/%d\n", correct, answered)
	return nil
}

func (s *session) readAnswer(optionCount int) (int, bool) {
	for invalid := 0; invalid < s.maxInvalidAnswers; invalid++ {
		if selected, ok := promptAnswer(s.reader, s.out, optionCount); ok {
			return selected, true
		}
		if remaining := s.maxInvalidAnswers - invalid - 1; remaining > 0 {
			fmt.Fprintf(s.out, "Invalid input. Attempts remaining: %d\n", remaining)
		}
	}
	return -1, false
}

func (s *session) runStats(ctx context.Context) error {
	stats, err := s.client.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "answered=%d correct=%d accuracy=%s streak=%d\n",
		stats.TotalAnswers,
		stats.CorrectAnswers,
		formatPercent(stats.Accuracy),
		stats.Streak,
	)
	for _, category := range quiz.SortedCategories(stats.ByCategory) {
		rollup := stats.ByCategory[category]
		fmt.Fprintf(s.out, "  %-20s %d/%d (%s)\n", category, rollup.Correct, rollup.Total, formatPercent(rollup.Accuracy))
	}
	return nil
}

func (s *session) runBadges(ctx context.Context) error {
	status, err := s.client.Badges(ctx)
	if err != nil {
		return err
	}
	unlocked := quiz.UnlockedSet(status.Unlocked)
	eligible := make(map[quiz.BadgeID]bool, len(status.Eligible))
	for _, id := range status.Eligible {
		eligible[id] = true
	}
	for _, badge := range status.Catalog {
		mark := " "
		switch {
		case unlocked[badge.ID]:
			mark = "x"
		case eligible[badge.ID]:
			mark = "!"
		}
		fmt.Fprintf(s.out, "[%s] %-14s %s (%s)\n", mark, badge.ID, badge.Name, badge.Requirement)
	}
	if len(status.Eligible) > 0 {
		fmt.Fprintln(s.out, "Badges marked ! can be claimed with 'unlock <badge_id>'.")
	}
	return nil
}

func (s *session) runUnlock(ctx context.Context, badgeID string) error {
	created, err := s.client.ClaimBadge(ctx, badgeID)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(s.out, "Badge unlocked: %s\n", badgeName(quiz.BadgeID(badgeID)))
	} else {
		fmt.Fprintln(s.out, "Badge already unlocked.")
	}
	return nil
}

func (s *session) runCertify(ctx context.Context, category string) error {
	result, err := s.client.IssueCertificate(ctx, category)
	if err != nil {
		return err
	}
	if !result.Issued || result.Certificate == nil {
		fmt.Fprintf(s.out, "Not eligible yet: %s\n", result.Eligibility.Reason)
		return nil
	}
	certificate := result.Certificate
	fmt.Fprintf(s.out, "Certificate %s issued for %s (accuracy %s%%, valid until %s)\n",
		certificate.CertificateID,
		certificate.Category,
		certificate.Accuracy.StringFixed(2),
		certificate.ValidUntil.Format("2006-01-02"),
	)
	return nil
}

func (s *session) runLeaderboard(ctx context.Context, category string, limit int) error {
	entries, err := s.client.Leaderboard(ctx, category, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(s.out, "No leaderboard entries yet.")
		return nil
	}
	for _, entry := range entries {
		fmt.Fprintf(s.out, "%d. %s accuracy=%s answered=%d\n",
			entry.Rank,
			entry.UserID,
			formatPercent(entry.Accuracy),
			entry.Total,
		)
	}
	return nil
}

func badgeName(id quiz.BadgeID) string {
	if badge, ok := quiz.LookupBadge(id); ok {
		return badge.Name
	}
	return string(id)
}
