package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/locvowork/employee_directory/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoEmployeeRepository pushes queries and aggregates down to MongoDB.
type MongoEmployeeRepository struct {
	coll  *mongo.Collection
	clock domain.Clock
}

// mongoEmployee is the stored document; fullName is never persisted.
type mongoEmployee struct {
	ID         string    `bson:"_id"`
	FirstName  string    `bson:"firstName"`
	LastName   string    `bson:"lastName"`
	Email      string    `bson:"email"`
	Phone      string    `bson:"phone"`
	Position   string    `bson:"position"`
	Department string    `bson:"department"`
	Salary     float64   `bson:"salary"`
	HireDate   time.Time `bson:"hireDate"`
	IsActive   *bool     `bson:"isActive,omitempty"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

// EmployeeIndexes are created by EnsureIndexes.
var EmployeeIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("uniq_email").SetUnique(true),
	},
	{
		Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "department", Value: 1}},
		Options: options.Index().SetName("idx_isActive_department"),
	},
	{
		Keys:    bson.D{{Key: "lastName", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("idx_lastName_id"),
	},
}

var activeFilter = bson.M{"isActive": bson.M{"$ne": false}}

// NewMongoEmployeeRepository creates a repository over the given collection
func NewMongoEmployeeRepository(coll *mongo.Collection, clock domain.Clock) *MongoEmployeeRepository {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &MongoEmployeeRepository{coll: coll, clock: clock}
}

// EnsureIndexes creates the unique email index and the list indexes.
func (r *MongoEmployeeRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.coll.Indexes().CreateMany(ctx, EmployeeIndexes); err != nil {
		return domain.NewStorageError("create indexes", err)
	}
	return nil
}

func (r *MongoEmployeeRepository) Find(ctx context.Context, q domain.ListQuery) (*domain.ListResult, error) {
	q = q.Normalized()
	filter := searchFilter(q.Search)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, domain.NewStorageError("count employees", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: q.SortField, Value: int(q.SortDirection)}, {Key: "_id", Value: 1}}).
		SetSkip(int64(q.Skip))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.NewStorageError("find employees", err)
	}
	var docs []mongoEmployee
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.NewStorageError("decode employees", err)
	}

	employees := make([]domain.Employee, len(docs))
	for i, d := range docs {
		employees[i] = d.toDomain()
	}
	return &domain.ListResult{Employees: employees, Total: total}, nil
}

func (r *MongoEmployeeRepository) FindByID(ctx context.Context, id string) (*domain.Employee, error) {
	e, err := r.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *MongoEmployeeRepository) Create(ctx context.Context, in domain.EmployeeInput) (*domain.Employee, error) {
	e, err := newEmployee(in, r.clock.Now())
	if err != nil {
		return nil, err
	}

	taken, err := r.emailTaken(ctx, e.Email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrDuplicateEmail
	}

	if _, err := r.coll.InsertOne(ctx, fromDomain(e)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, domain.NewStorageError("insert employee", err)
	}
	return &e, nil
}

func (r *MongoEmployeeRepository) Update(ctx context.Context, id string, in domain.EmployeeInput) (*domain.Employee, error) {
	existing, err := r.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := applyInput(existing, in, r.clock.Now())
	if err != nil {
		return nil, err
	}
	if email, ok := emailOf(in); ok {
		taken, err := r.emailTaken(ctx, email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.ErrDuplicateEmail
		}
	}

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": id}, fromDomain(updated))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, domain.NewStorageError("replace employee", err)
	}
	if res.MatchedCount == 0 {
		return nil, domain.ErrEmployeeNotFound
	}
	return &updated, nil
}

func (r *MongoEmployeeRepository) Delete(ctx context.Context, id string) (*domain.Employee, error) {
	var doc mongoEmployee
	err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("delete employee", err)
	}
	e := doc.toDomain()
	return &e, nil
}

func (r *MongoEmployeeRepository) CountActive(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, activeFilter)
	if err != nil {
		return 0, domain.NewStorageError("count active employees", err)
	}
	return n, nil
}

func (r *MongoEmployeeRepository) DepartmentSummary(ctx context.Context) ([]domain.DepartmentStat, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: activeFilter}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$department"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewStorageError("aggregate departments", err)
	}
	stats := []domain.DepartmentStat{}
	if err := cur.All(ctx, &stats); err != nil {
		return nil, domain.NewStorageError("decode departments", err)
	}
	return stats, nil
}

func (r *MongoEmployeeRepository) AverageActiveSalary(ctx context.Context) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: activeFilter}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avgSalary", Value: bson.D{{Key: "$avg", Value: "$salary"}}},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, domain.NewStorageError("aggregate salary", err)
	}
	var rows []struct {
		AvgSalary float64 `bson:"avgSalary"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, domain.NewStorageError("decode salary", err)
	}
	// $group over no documents yields no row
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].AvgSalary, nil
}

func (r *MongoEmployeeRepository) Ping(ctx context.Context) error {
	if err := r.coll.Database().Client().Ping(ctx, nil); err != nil {
		return domain.NewStorageError("ping", err)
	}
	return nil
}

func (r *MongoEmployeeRepository) findByID(ctx context.Context, id string) (domain.Employee, error) {
	var doc mongoEmployee
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Employee{}, domain.ErrEmployeeNotFound
	}
	if err != nil {
		return domain.Employee{}, domain.NewStorageError("find employee", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoEmployeeRepository) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	filter := bson.M{"email": email}
	if exceptID != "" {
		filter["_id"] = bson.M{"$ne": exceptID}
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, domain.NewStorageError("check email", err)
	}
	return n > 0, nil
}

// searchFilter ORs an escaped case-insensitive regex over the searchable fields.
func searchFilter(term string) bson.M {
	if term == "" {
		return bson.M{}
	}
	re := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	or := make(bson.A, 0, len(domain.SearchFields))
	for _, f := range domain.SearchFields {
		or = append(or, bson.M{f: re})
	}
	return bson.M{"$or": or}
}

func fromDomain(e domain.Employee) mongoEmployee {
	active := e.IsActive
	return mongoEmployee{
		ID:         e.ID,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Email:      e.Email,
		Phone:      e.Phone,
		Position:   e.Position,
		Department: e.Department,
		Salary:     e.Salary,
		HireDate:   e.HireDate,
		IsActive:   &active,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func (d mongoEmployee) toDomain() domain.Employee {
	return domain.Employee{
		ID:         d.ID,
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		Email:      d.Email,
		Phone:      d.Phone,
		Position:   d.Position,
		Department: d.Department,
		Salary:     d.Salary,
		HireDate:   d.HireDate.UTC(),
		IsActive:   d.IsActive == nil || *d.IsActive,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}.WithFullName()
}
