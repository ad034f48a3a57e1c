package devserver

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/qaplatform/qaglue/pkg/dom"
)

// Question is a seeded question served by /search.
type Question struct {
	ID      int
	Title   string
	Content string
	Tags    []string
	Answers int
}

// Catalog is the read-only question set behind /search, tag
// suggestions and /api/stats.
type Catalog struct {
	Questions []Question
}

// DefaultCatalog returns a small sample catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{Questions: []Question{
		{ID: 1, Title: "How to implement authentication in Flask using JWT?",
			Content: "I need token based authentication for a Flask API.",
			Tags:    []string{"python", "flask", "authentication", "jwt", "security"}, Answers: 2},
		{ID: 2, Title: "What is the difference between REST and GraphQL APIs?",
			Content: "When should a backend expose GraphQL instead of REST?",
			Tags:    []string{"api", "rest", "graphql", "web-development", "backend"}, Answers: 3},
		{ID: 3, Title: "How to optimize database queries in Django?",
			Content: "My Django views issue hundreds of queries per page.",
			Tags:    []string{"python", "django", "database", "optimization", "performance"}, Answers: 1},
		{ID: 4, Title: "React Hooks vs Class Components - Which should I use?",
			Content: "Starting a new React frontend and unsure which style to pick.",
			Tags:    []string{"react", "javascript", "frontend", "web-development"}},
		{ID: 5, Title: "How to implement caching in Node.js applications?",
			Content: "Looking at redis for caching API responses in nodejs.",
			Tags:    []string{"nodejs", "caching", "performance", "redis", "backend"}, Answers: 2},
		{ID: 6, Title: "What is the difference between SQL and NoSQL databases?",
			Content: "Comparing postgresql with mongodb for a new project.",
			Tags:    []string{"database", "sql", "nosql", "mongodb", "postgresql"}, Answers: 4},
		{ID: 7, Title: "How to implement real-time features in web applications?",
			Content: "Should I use websockets or server-sent events for live updates?",
			Tags:    []string{"websockets", "real-time", "javascript", "nodejs", "frontend"}},
		{ID: 8, Title: "What is the difference between Docker containers and virtual machines?",
			Content: "Trying to understand docker for devops work.",
			Tags:    []string{"docker", "virtualization", "devops", "containers", "infrastructure"}, Answers: 1},
	}}
}

// Search returns questions whose title, content or tags contain q,
// case-insensitively, newest (highest ID) first.
func (c *Catalog) Search(q string) []Question {
	needle := strings.ToLower(strings.TrimSpace(q))
	if needle == "" {
		return nil
	}
	var out []Question
	for _, question := range c.Questions {
		if question.matches(needle) {
			out = append(out, question)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (q Question) matches(needle string) bool {
	if strings.Contains(strings.ToLower(q.Title), needle) ||
		strings.Contains(strings.ToLower(q.Content), needle) {
		return true
	}
	for _, t := range q.Tags {
		if strings.Contains(t, needle) {
			return true
		}
	}
	return false
}

// Tags returns every distinct tag, sorted.
func (c *Catalog) Tags() []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range c.Questions {
		for _, t := range q.Tags {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}

// SuggestTags returns up to limit known tags mentioned in the title or
// content, ordered by how often they are used in the catalog.
func (c *Catalog) SuggestTags(title, content string, limit int) []string {
	text := strings.ToLower(title + " " + content)
	usage := c.tagUsage()

	var out []string
	for _, t := range c.Tags() {
		if strings.Contains(text, t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return usage[out[i]] > usage[out[j]] })
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func (c *Catalog) tagUsage() map[string]int {
	usage := make(map[string]int)
	for _, q := range c.Questions {
		for _, t := range q.Tags {
			usage[t]++
		}
	}
	return usage
}

// RenderResults renders the search results fragment.
func RenderResults(query string, questions []Question) (string, error) {
	list := dom.Element("div", "class", "search-results")
	if len(questions) == 0 {
		empty := dom.Element("p", "class", "search-empty")
		dom.SetText(empty, "No questions match "+strconv.Quote(query)+".")
		list.AppendChild(empty)
	}
	for _, q := range questions {
		item := dom.Element("div", "class", "search-result question-card", "data-question-id", strconv.Itoa(q.ID))
		link := dom.Element("a", "href", "/question/"+strconv.Itoa(q.ID))
		dom.SetText(link, q.Title)
		item.AppendChild(link)
		for _, t := range q.Tags {
			tag := dom.Element("span", "class", "tag")
			dom.SetText(tag, t)
			item.AppendChild(tag)
		}
		list.AppendChild(item)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, list); err != nil {
		return "", err
	}
	return buf.String(), nil
}
