// Package orchestrator implements the run orchestrator (C8): the 8-phase
// state machine (fetching/classifying/embedding/faceting/clustering/
// pm_review/quality_gate/story_creation) that drives a single pipeline run
// from its persisted window to finished stories, wiring together every
// other domain package. It implements queue.RunExecutor — pkg/queue owns
// claiming, heartbeating, and terminal status; this package owns
// everything that happens while a run is "running".
package orchestrator

import (
	"context"
	"fmt"

	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/signaturealias"
	"github.com/feedforward/feedforward/pkg/canon"
	"github.com/feedforward/feedforward/pkg/classifier"
	"github.com/feedforward/feedforward/pkg/config"
	"github.com/feedforward/feedforward/pkg/embedding"
	"github.com/feedforward/feedforward/pkg/fetcher"
	"github.com/feedforward/feedforward/pkg/llmclient"
	"github.com/feedforward/feedforward/pkg/pmreview"
	"github.com/feedforward/feedforward/pkg/previewstore"
	"github.com/feedforward/feedforward/pkg/qualitygate"
	"github.com/feedforward/feedforward/pkg/services"
	"github.com/feedforward/feedforward/pkg/story"
)

// Dependencies aggregates every component the orchestrator drives: the
// pure/stateless domain packages (fetcher, classifier, embedding, cluster,
// pmreview, qualitygate, canon, story) and the persistence layer
// (pkg/services) they feed.
type Dependencies struct {
	Config *config.Config

	Conversations   *services.ConversationService
	Classifications *services.ClassificationService
	Embeddings      *services.EmbeddingService
	Facets          *services.FacetService
	Clusters        *services.ClusterService
	PMVerdicts      *services.PMVerdictService
	Stories         *services.StoryService
	Orphans         *services.OrphanService
	PhaseEvents     *services.PhaseEventService
	Runs            *services.RunService

	Fetcher    *fetcher.Fetcher
	Classifier *classifier.Classifier
	Extractor  *embedding.Extractor
	PMGate     *pmreview.Gate
	Scorer     *qualitygate.Scorer
	Assembler  *story.Assembler
	Canon      *canon.Registry
	Preview    *previewstore.Store

	// ModelVersion tags every embedding/facet row, so a provider migration
	// never mixes incompatible vector spaces mid-run.
	ModelVersion string
}

// NewDependencies wires every component from cfg against client, resolving
// the configured LLM/embedding providers and constructing the ticketing
// client. preview may be nil if dry-run previews are not needed by the
// caller (e.g. tests).
func NewDependencies(cfg *config.Config, client *ent.Client, preview *previewstore.Store) (*Dependencies, error) {
	llmProviderName := cfg.Defaults.LLMProvider
	llmCfg, err := cfg.GetLLMProvider(llmProviderName)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: resolving LLM provider %q: %w", llmProviderName, err)
	}
	llm, err := llmclient.New(llmProviderName, llmCfg)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: constructing LLM client: %w", err)
	}

	embedProviderName := cfg.Defaults.EmbeddingProvider
	embedCfg, err := cfg.GetEmbeddingProvider(embedProviderName)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: resolving embedding provider %q: %w", embedProviderName, err)
	}
	embed, err := llmclient.NewEmbeddingClient(embedProviderName, embedCfg)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: constructing embedding client: %w", err)
	}

	ticketingClient, err := fetcher.NewHTTPTicketingClient(cfg.Ticketing)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: constructing ticketing client: %w", err)
	}

	aliasSvc := services.NewAliasService(client)

	return &Dependencies{
		Config: cfg,

		Conversations:   services.NewConversationService(client),
		Classifications: services.NewClassificationService(client),
		Embeddings:      services.NewEmbeddingService(client),
		Facets:          services.NewFacetService(client),
		Clusters:        services.NewClusterService(client),
		PMVerdicts:      services.NewPMVerdictService(client),
		Stories:         services.NewStoryService(client),
		Orphans:         services.NewOrphanService(client),
		PhaseEvents:     services.NewPhaseEventService(client),
		Runs:            services.NewRunService(client),

		Fetcher:    fetcher.New(ticketingClient, cfg.Ticketing),
		Classifier: classifier.New(llm, cfg.Runner.ClassifierConcurrency),
		Extractor:  embedding.New(embed, llm, cfg.Runner.EmbeddingConcurrency, embedCfg.Model),
		PMGate:     pmreview.New(llm, cfg.Runner.PMReviewTimeout),
		Scorer:     qualitygate.New(cfg.QualityGate),
		Assembler:  story.New(llm, cfg.Runner.PMReviewTimeout),
		Canon:      canon.New(newAliasStore(aliasSvc)),
		Preview:    preview,

		ModelVersion: embedCfg.Model,
	}, nil
}

// aliasStore adapts services.AliasService to canon.Store, converting
// canon.Kind to the ent-generated signaturealias.Kind at the boundary so
// pkg/canon stays free of any ent import.
type aliasStore struct {
	svc *services.AliasService
}

func newAliasStore(svc *services.AliasService) *aliasStore {
	return &aliasStore{svc: svc}
}

func (a *aliasStore) LoadAll(ctx context.Context, kind canon.Kind) (map[string]string, error) {
	return a.svc.LoadAll(ctx, signaturealias.Kind(kind))
}

func (a *aliasStore) Upsert(ctx context.Context, kind canon.Kind, normalizedRaw, canonical string) (bool, error) {
	_, overwrote, err := a.svc.Upsert(ctx, signaturealias.Kind(kind), normalizedRaw, canonical)
	return overwrote, err
}
