package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/veilmont/colmatch/pkg/engine"
	"github.com/veilmont/colmatch/pkg/kit"
	"github.com/veilmont/colmatch/pkg/learning"
)

// DefaultTargets is the catalog template schema used when a request does not
// name its own target fields.
var DefaultTargets = []string{
	"Référence",
	"Code barre",
	"Libellé",
	"Descriptif",
	"Prix achat net",
	"Prix public HT",
	"Prix TTC",
	"Prix unitaire",
	"Quantité",
	"Catégorie",
	"Sous-catégorie",
	"Marque",
	"Couleur",
	"Taille",
	"Poids",
	"Stock",
	"Image 1",
}

const (
	maxHeaders = 256
	maxTargets = 256
)

// Shared request/response types used by both HTTP and MCP transports.

type matchReq struct {
	Headers       []string
	Targets       []string
	MinConfidence float64
}

type matchResponse struct {
	Mapping engine.Mapping `json:"mapping"`
}

type suggestReq struct {
	Source  string
	Targets []string
	TopN    int
}

type suggestResponse struct {
	Source      string              `json:"source"`
	Suggestions []engine.Suggestion `json:"suggestions"`
}

type correctionReq struct {
	Source           string
	Target           string
	Template         string
	ConfidenceBefore float64
}

type statusResponse struct {
	Status string `json:"status"`
}

type contextResponse struct {
	Context string `json:"context"`
}

func matchEndpoint(eng *engine.Engine) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*matchReq)
		if len(req.Headers) > maxHeaders {
			return nil, fmt.Errorf("too many headers (max %d, got %d)", maxHeaders, len(req.Headers))
		}
		if len(req.Targets) > maxTargets {
			return nil, fmt.Errorf("too many targets (max %d, got %d)", maxTargets, len(req.Targets))
		}
		targets := req.Targets
		if len(targets) == 0 {
			targets = DefaultTargets
		}
		// Spreadsheet header rows routinely contain blank cells; an empty
		// column name can never be a match and would collide with the
		// "unmatched" sentinel in the mapping.
		headers := make([]string, 0, len(req.Headers))
		for _, h := range req.Headers {
			if strings.TrimSpace(h) != "" {
				headers = append(headers, h)
			}
		}
		return matchResponse{Mapping: eng.IdentifyColumns(ctx, headers, targets, req.MinConfidence)}, nil
	}
}

func suggestEndpoint(eng *engine.Engine) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*suggestReq)
		if req.Source == "" {
			return nil, fmt.Errorf("source column is required")
		}
		targets := req.Targets
		if len(targets) == 0 {
			targets = DefaultTargets
		}
		return suggestResponse{
			Source:      req.Source,
			Suggestions: eng.Suggest(ctx, req.Source, targets, req.TopN),
		}, nil
	}
}

func correctionEndpoint(store *learning.Store) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*correctionReq)
		if err := store.AddCorrection(req.Source, req.Target, req.Template, req.ConfidenceBefore); err != nil {
			return nil, err
		}
		return statusResponse{Status: "recorded"}, nil
	}
}

func contextEndpoint(store *learning.Store) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return contextResponse{Context: store.LearningContext(20)}, nil
	}
}

func statsEndpoint(store *learning.Store) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return store.Statistics()
	}
}

func clearHistoryEndpoint(store *learning.Store) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		if err := store.ClearHistory(); err != nil {
			return nil, err
		}
		return statusResponse{Status: "cleared"}, nil
	}
}
