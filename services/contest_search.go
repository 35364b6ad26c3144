package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
)

const contestMapping = `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
	"name":{"type":"text"},"description":{"type":"text"},"task_instruction":{"type":"text"},
	"type":{"type":"keyword"},"status":{"type":"keyword"},"creator_id":{"type":"keyword"},
	"deadline":{"type":"date"},"updated_at":{"type":"date"}
}}}`

// ContestDoc is the search document for one contest.
type ContestDoc struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	TaskInstruction string    `json:"task_instruction"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	CreatorID       string    `json:"creator_id"`
	Deadline        time.Time `json:"deadline"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func BuildContestDoc(c models.Contest) ([]byte, error) {
	return json.Marshal(ContestDoc{
		Name:            c.Name,
		Description:     c.Description,
		TaskInstruction: c.TaskInstruction,
		Type:            string(c.Type),
		Status:          string(c.Status),
		CreatorID:       c.CreatorID.String(),
		Deadline:        c.Deadline,
		UpdatedAt:       c.UpdatedAt,
	})
}

// ContestSearch keeps a full-text index of contests in Elasticsearch.
type ContestSearch struct {
	es    *es.Client
	index string
}

// NewContestSearch returns nil when url is empty.
func NewContestSearch(url, index string) (*ContestSearch, error) {
	if url == "" {
		return nil, nil
	}
	client, err := es.NewClient(es.Config{Addresses: []string{url}})
	if err != nil {
		return nil, errs.NewConfigError("ELASTIC_URL", err)
	}
	return &ContestSearch{es: client, index: index}, nil
}

// EnsureIndex creates the contest index if it does not exist yet.
func (s *ContestSearch) EnsureIndex(ctx context.Context) error {
	exists, err := s.es.Indices.Exists([]string{s.index}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return errs.NewUpstreamError("elasticsearch", err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	res, err := s.es.Indices.Create(s.index,
		s.es.Indices.Create.WithBody(strings.NewReader(contestMapping)),
		s.es.Indices.Create.WithContext(ctx))
	if err != nil {
		return errs.NewUpstreamError("elasticsearch", fmt.Errorf("create index %s: %w", s.index, err))
	}
	return checkResponse(res)
}

// Index writes or replaces the document for c.
func (s *ContestSearch) Index(ctx context.Context, c models.Contest) error {
	doc, err := BuildContestDoc(c)
	if err != nil {
		return err
	}
	res, err := s.es.Index(s.index, bytes.NewReader(doc),
		s.es.Index.WithDocumentID(c.ID.String()),
		s.es.Index.WithContext(ctx))
	if err != nil {
		return errs.NewUpstreamError("elasticsearch", err)
	}
	return checkResponse(res)
}

// Delete removes a contest; a missing document is not an error.
func (s *ContestSearch) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.es.Delete(s.index, id.String(), s.es.Delete.WithContext(ctx))
	if err != nil {
		return errs.NewUpstreamError("elasticsearch", err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil
	}
	return checkResponse(res)
}

// Reindex bulk-loads every contest, used to seed an empty index.
func (s *ContestSearch) Reindex(ctx context.Context, contests []models.Contest) error {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     s.es,
		Index:      s.index,
		FlushBytes: 5 << 20,
		NumWorkers: 2,
	})
	if err != nil {
		return errs.NewUpstreamError("elasticsearch", err)
	}

	for _, c := range contests {
		doc, err := BuildContestDoc(c)
		if err != nil {
			return err
		}
		id := c.ID.String()
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: id,
			Body:       bytes.NewReader(doc),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err == nil {
					err = fmt.Errorf("%s: %s", res.Error.Type, res.Error.Reason)
				}
				log.Warn().Err(err).Str("contestId", id).Msg("Failed to index contest")
			},
		})
		if err != nil {
			return errs.NewUpstreamError("elasticsearch", err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return errs.NewUpstreamError("elasticsearch", err)
	}
	stats := bi.Stats()
	log.Info().Uint64("indexed", stats.NumFlushed).Uint64("failed", stats.NumFailed).Msg("Reindexed contests")
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search returns the ids of contests matching query, best match first.
func (s *ContestSearch) Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error) {
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^3", "description", "task_instruction"},
				"fuzziness": "AUTO",
			},
		},
		"_source": false,
	})
	if err != nil {
		return nil, err
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(body)),
		s.es.Search.WithSize(limit),
	)
	if err != nil {
		return nil, errs.NewUpstreamError("elasticsearch", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, errs.NewUpstreamError("elasticsearch", fmt.Errorf("search: %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errs.NewUpstreamError("elasticsearch", fmt.Errorf("decode search response: %w", err))
	}
	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		if id, err := uuid.Parse(hit.ID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func checkResponse(res *esapi.Response) error {
	defer res.Body.Close()
	if !res.IsError() {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 1<<10))
	return errs.NewUpstreamError("elasticsearch", fmt.Errorf("%s: %s", res.Status(), msg))
}
