package handlers

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"cvintake/internal/config"
	"cvintake/internal/hr"
	"cvintake/internal/intake/ocr"
	"cvintake/internal/intake/structurer"
	"cvintake/internal/llm"
	"cvintake/internal/objectstore"
	"cvintake/internal/persistence"
	"cvintake/internal/pipeline"
	"cvintake/internal/query/cache"
	"cvintake/internal/query/relaxed"
	"cvintake/internal/query/translate"
	qrouter "cvintake/internal/router"
	"cvintake/internal/searchindex"
	"cvintake/internal/state"
	"cvintake/internal/taxonomy"
)

// promptVersion is the on-disk prompt file looked up before falling
// back to the embedded default.
const promptVersion = "v1"

// app is the assembled dependency graph the command handlers share.
type app struct {
	cfg      *config.Config
	llm      *llm.Client
	state    *state.Store
	hrJobs   *hr.JobStore
	objects  *objectstore.Store
	search   *searchindex.Index
	pipe     *pipeline.Pipeline
	queries  *qrouter.Router
	aliasDB  *persistence.DB
}

// buildApp wires every component from configuration. The taxonomy alias
// connection is the only long-lived relational connection; writers and
// query stores open fresh per request.
func buildApp(ctx context.Context) (*app, error) {
	cfg := config.Get()

	llmClient, err := llm.NewClient(ctx, cfg.LLM.Region)
	if err != nil {
		return nil, fmt.Errorf("building bedrock client: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	dynamoClient := dynamodb.NewFromConfig(awsCfg)

	stateStore := state.New(dynamoClient, cfg.AWS.StateTable)
	jobStore := hr.NewJobStore(dynamoClient, cfg.AWS.HRJobTable)

	objects, err := objectstore.New(ctx, cfg.AWS.Region, cfg.AWS.UploadsBucket)
	if err != nil {
		return nil, fmt.Errorf("building object store: %w", err)
	}

	search, err := searchindex.New(searchindex.Config{
		Addresses:   cfg.Search.Addresses,
		Username:    cfg.Search.Username,
		Password:    cfg.Search.Password,
		InsecureTLS: cfg.Search.InsecureTLS,
		Alias:       cfg.Search.IndexAlias,
	})
	if err != nil {
		return nil, fmt.Errorf("building search index client: %w", err)
	}

	textractClient, err := ocr.NewCloudTextract(ctx, cfg.AWS.Region)
	if err != nil {
		return nil, fmt.Errorf("building textract client: %w", err)
	}

	completionModel := llm.Model(cfg.LLM.CompletionModel)
	arbitrationModel := llm.Model(cfg.LLM.ArbitrationModel)
	embedder := llmClient.EmbedderFor(llm.Model(cfg.LLM.EmbeddingModel))

	ocrEngine := &ocr.Engine{
		LLM:              llmClient,
		CompletionModel:  completionModel,
		ArbitrationModel: arbitrationModel,
		Textract:         textractClient,
		Tesseract:        ocr.LocalTesseract{},
		ProviderTimeout:  cfg.Intake.OCRProviderTimeout,
	}

	connStr := cfg.Database.ConnectionString
	aliasDB, err := persistence.NewDB(connStr)
	if err != nil {
		return nil, fmt.Errorf("opening taxonomy read connection: %w", err)
	}
	aliasCache := taxonomy.NewCache(aliasDB, cfg.Taxonomy.AliasCacheTTL)
	mapper := taxonomy.NewMapper(aliasCache, aliasDB, embedder, cfg.LLM.EmbeddingBatchSize)

	cvStructurer := structurer.New(llmClient, completionModel, cfg.LLM.StructurerPromptDir, promptVersion)

	pipe := pipeline.New(
		stateStore,
		objects,
		ocrEngine,
		cvStructurer,
		mapper,
		pipeline.PostgresWriterFactory(connStr),
		embedder,
		search,
	)

	translator := translate.New(llmClient, completionModel, cfg.LLM.TranslatorPromptDir, promptVersion)
	relaxedMatcher := relaxed.New(llmClient, completionModel, arbitrationModel,
		qrouter.PostgresScorer{ConnStr: connStr}, cfg.Query.RelaxedTopN)
	analyzer := hr.New(llmClient, completionModel)

	queries := qrouter.New(
		translator,
		cache.New(cfg.Query.CacheTTL),
		qrouter.PostgresStoreFactory(connStr),
		relaxedMatcher,
		analyzer,
		jobStore,
		search,
		embedder,
		cfg.Query.HRSyncCandidateCap,
	)

	return &app{
		cfg:     cfg,
		llm:     llmClient,
		state:   stateStore,
		hrJobs:  jobStore,
		objects: objects,
		search:  search,
		pipe:    pipe,
		queries: queries,
		aliasDB: aliasDB,
	}, nil
}

func (a *app) Close() {
	if a.aliasDB != nil {
		_ = a.aliasDB.Close()
	}
}
