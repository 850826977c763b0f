package dialog

import (
	"context"
	"errors"
	"strings"

	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/matraxtyres/tyre_assistant/retrieval"
)

const composerHistoryWindow = 6

// Generator produces reply text from a system instruction and a context block.
type Generator interface {
	Generate(ctx context.Context, instruction string, context string) (string, error)
}

// Composition is everything one generated reply may draw on. Nil Retrieval and
// empty WorkflowResult leave their sections out.
type Composition struct {
	Instruction    string
	Message        string
	History        models.History
	Retrieval      models.FusedResults
	WorkflowResult string
	Guidance       string
}

type Composer struct {
	generator   Generator
	collections []string
}

func NewComposer(generator Generator, collections []string) *Composer {
	return &Composer{generator: generator, collections: collections}
}

func (c *Composer) Compose(ctx context.Context, comp Composition) (string, error) {
	reply, err := c.generator.Generate(ctx, comp.Instruction, c.BuildContext(comp))
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.New("generator returned an empty reply")
	}
	return reply, nil
}

// BuildContext renders the prompt body. Ids and similarity scores never reach it.
func (c *Composer) BuildContext(comp Composition) string {
	var sb strings.Builder

	sb.WriteString("Recent conversation context:\n")
	window := comp.History.Last(composerHistoryWindow)
	if len(window) == 0 {
		sb.WriteString("First message in this conversation.")
	} else {
		sb.WriteString(window.Transcript())
	}
	sb.WriteString("\n\n")

	if comp.Retrieval != nil {
		sb.WriteString("Search results from our database (ranked by relevance):\n")
		sb.WriteString(retrieval.RenderContext(comp.Retrieval, c.collections))
		sb.WriteString("\n\n")
	}
	if comp.WorkflowResult != "" {
		sb.WriteString(comp.WorkflowResult)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Customer's new message: ")
	sb.WriteString(comp.Message)
	if comp.Guidance != "" {
		sb.WriteString("\n\n")
		sb.WriteString(comp.Guidance)
	}
	return sb.String()
}
