package database

import (
	"context"
	"fmt"
	"time"

	"github.com/locvowork/employee_directory/internal/domain"
	"github.com/olivere/elastic/v7"
)

// DefaultElasticIndex is used when no index name is configured.
const DefaultElasticIndex = "employees"

// EmployeeDoc mirrors domain.Employee for ES storage.
type EmployeeDoc struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Position   string    `json:"position"`
	Department string    `json:"department"`
	Salary     float64   `json:"salary"`
	HireDate   time.Time `json:"hire_date"`
	IsActive   bool      `json:"is_active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const employeeMapping = `{
	"mappings": {
		"properties": {
			"id":         {"type": "keyword"},
			"first_name": {"type": "text"},
			"last_name":  {"type": "text"},
			"full_name":  {"type": "text"},
			"email":      {"type": "keyword"},
			"phone":      {"type": "keyword"},
			"position":   {"type": "text"},
			"department": {"type": "keyword"},
			"salary":     {"type": "double"},
			"hire_date":  {"type": "date"},
			"is_active":  {"type": "boolean"},
			"updated_at": {"type": "date"}
		}
	}
}`

// ElasticSearchClient wraps olivere/elastic client.
type ElasticSearchClient struct {
	client *elastic.Client
	index  string
}

// NewElasticSearchClient creates a new client for Elasticsearch 7.x.
// Extra options are appended after the defaults.
func NewElasticSearchClient(url, index string, opts ...elastic.ClientOptionFunc) (*ElasticSearchClient, error) {
	if index == "" {
		index = DefaultElasticIndex
	}

	options := append([]elastic.ClientOptionFunc{
		elastic.SetURL(url),
		elastic.SetSniff(false), // Essential when using Docker or cloud
	}, opts...)

	client, err := elastic.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	return &ElasticSearchClient{client: client, index: index}, nil
}

// Index name the mirror writes to.
func (es *ElasticSearchClient) Index() string {
	return es.index
}

// EnsureIndex creates the index with its mapping when missing.
func (es *ElasticSearchClient) EnsureIndex(ctx context.Context) error {
	exists, err := es.client.IndexExists(es.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", es.index, err)
	}
	if exists {
		return nil
	}

	if _, err := es.client.CreateIndex(es.index).BodyString(employeeMapping).Do(ctx); err != nil {
		return fmt.Errorf("failed to create index %s: %w", es.index, err)
	}
	return nil
}

// IndexEmployee indexes an employee document using its id.
func (es *ElasticSearchClient) IndexEmployee(ctx context.Context, emp domain.Employee) error {
	_, err := es.client.Index().
		Index(es.index).
		Id(emp.ID).
		BodyJson(toDoc(emp)).
		Refresh("true"). // Make changes immediately searchable
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to index employee %s: %w", emp.ID, err)
	}
	return nil
}

// DeleteEmployee removes an employee document. A missing document is not an error.
func (es *ElasticSearchClient) DeleteEmployee(ctx context.Context, id string) error {
	_, err := es.client.Delete().
		Index(es.index).
		Id(id).
		Refresh("true").
		Do(ctx)
	if err != nil && !elastic.IsNotFound(err) {
		return fmt.Errorf("failed to delete employee %s: %w", id, err)
	}
	return nil
}

// BulkIndexEmployees efficiently indexes multiple employees.
func (es *ElasticSearchClient) BulkIndexEmployees(ctx context.Context, employees []domain.Employee) error {
	bulkRequest := es.client.Bulk()

	for _, emp := range employees {
		req := elastic.NewBulkIndexRequest().
			Index(es.index).
			Id(emp.ID).
			Doc(toDoc(emp))
		bulkRequest = bulkRequest.Add(req)
	}

	if bulkRequest.NumberOfActions() == 0 {
		return nil
	}

	bulkResponse, err := bulkRequest.Refresh("true").Do(ctx)
	if err != nil {
		return fmt.Errorf("bulk index failed: %w", err)
	}

	if bulkResponse.Errors {
		for _, item := range bulkResponse.Failed() {
			if item.Error != nil {
				return fmt.Errorf("bulk item %s failed: %s", item.Id, item.Error.Reason)
			}
		}
		return fmt.Errorf("bulk index reported errors")
	}

	return nil
}

// CountEmployees returns the number of mirrored documents.
func (es *ElasticSearchClient) CountEmployees(ctx context.Context) (int64, error) {
	n, err := es.client.Count(es.index).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}

// Stop releases the client's background resources.
func (es *ElasticSearchClient) Stop() {
	es.client.Stop()
}

func toDoc(e domain.Employee) EmployeeDoc {
	e = e.WithFullName()
	return EmployeeDoc{
		ID:         e.ID,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		FullName:   e.FullName,
		Email:      e.Email,
		Phone:      e.Phone,
		Position:   e.Position,
		Department: e.Department,
		Salary:     e.Salary,
		HireDate:   e.HireDate,
		IsActive:   e.IsActive,
		UpdatedAt:  e.UpdatedAt,
	}
}
