package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/qaplatform/qaglue/internal/errors"
	"github.com/qaplatform/qaglue/pkg/csrf"
	"github.com/qaplatform/qaglue/pkg/vote"
)

func voteCmd(g *globalFlags) *cobra.Command {
	var (
		baseURL string
		token   string
		user    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "vote <question|answer> <id> <up|down|none>",
		Short: "Send one vote and print the new score",
		Long: `Send one vote to the backend's /vote endpoint, exactly as a vote
button would, and print the score it returns.

Examples:
  qaglue vote question 42 up
  qaglue vote answer 7 none --user=alice`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if baseURL == "" {
				baseURL = cfg.BaseURL
			}
			if token == "" {
				token = cfg.Dev.CSRFToken
			}

			itemType, itemID := args[0], args[1]
			if itemType != "question" && itemType != "answer" {
				return errors.New("Q150").
					WithDetail(fmt.Sprintf("unknown item type %q", itemType)).
					WithSuggestion("Use question or answer")
			}
			dir, err := vote.ParseDirection(args[2])
			if err != nil {
				return errors.New("Q150").
					WithDetail(err.Error()).
					WithSuggestion("Use up, down or none")
			}

			hc := &http.Client{Timeout: timeout}
			if user != "" {
				hc.Transport = userTransport{user: user, next: http.DefaultTransport}
			}
			client := vote.NewHTTPClient(baseURL, csrf.Static(token), vote.WithHTTPClient(hc))

			resp, err := client.Vote(cmdContext(cmd), vote.Request{ItemType: itemType, ItemID: itemID, Value: dir.Value()})
			if err != nil {
				return errors.New("Q200").
					WithDetail(fmt.Sprintf("POST %s%s", baseURL, vote.Path)).
					Wrap(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.NewScore)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Backend origin (default from config)")
	cmd.Flags().StringVar(&token, "csrf-token", "", "CSRF token to send (default: dev.csrfToken)")
	cmd.Flags().StringVar(&user, "user", "", "Voter identity sent as X-User-ID")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	return cmd
}

// userTransport tags each request with the voter identity the dev
// backend keys votes by.
type userTransport struct {
	user string
	next http.RoundTripper
}

func (t userTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("X-User-ID", t.user)
	return t.next.RoundTrip(r)
}
