package sinks

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/rs/zerolog/log"
)

// ElasticSink indexes each row into an index named after its stream, with an
// optional prefix from the config.
type ElasticSink struct {
	sinkName string

	cloudID     string
	url         string
	apiKey      string
	indexPrefix string

	client *elasticsearch.Client
}

func (e *ElasticSink) Init(args SinkConfig) error {
	e.sinkName = args.Name
	e.cloudID = args.Config["cloud_id"]
	e.url = args.Config["url"]
	e.apiKey = args.Config["api_key"]
	e.indexPrefix = args.Config["index_prefix"]

	if e.cloudID == "" && e.url == "" {
		log.Error().Msg("Missing cloud_id or url in elasticsearch sink config")
		return fmt.Errorf("missing cloud_id or url")
	}
	return nil
}

func (e *ElasticSink) Connect(ctx context.Context) error {
	log.Trace().Msg("Connecting to elasticsearch...")

	cfg := elasticsearch.Config{APIKey: e.apiKey}
	if e.cloudID != "" {
		cfg.CloudID = e.cloudID
	} else {
		cfg.Addresses = []string{e.url}
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		log.Err(err).Msg("Error when creating the elasticsearch client!")
		return err
	}
	e.client = client

	res, err := client.Info()
	if err != nil {
		log.Err(err).Msg("Failed to reach elasticsearch")
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch info request failed: %s", res.String())
	}
	return nil
}

func (e *ElasticSink) Write(ctx context.Context, row Row) error {
	req := esapi.IndexRequest{
		Index: e.indexPrefix + row.Stream,
		Body:  bytes.NewReader(row.Data),
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		log.Err(err).Str("stream", row.Stream).Msg("Failed to index document")
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		log.Error().Str("stream", row.Stream).Str("response", string(body)).Msg("Index request rejected")
		return fmt.Errorf("indexing into %s%s failed: %s", e.indexPrefix, row.Stream, res.Status())
	}
	return nil
}

func (e *ElasticSink) Disconnect() error {
	log.Info().Msg("Closing elasticsearch sink")
	return nil
}

func (e *ElasticSink) Name() string { return e.sinkName }

func (e *ElasticSink) Info() string {
	return fmt.Sprintf("Name:%s|Type:elasticsearch|IndexPrefix:%s", e.sinkName, e.indexPrefix)
}
