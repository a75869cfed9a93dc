package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"pocketpages/internal/domain"
)

const mongoPagesCollection = "pages"

// MongoStore implements domain.PageStore with one document per page, blocks embedded.
type MongoStore struct {
	client *mongo.Client
	pages  *mongo.Collection
}

var _ domain.PageStore = (*MongoStore)(nil)

type mongoPage struct {
	ID                 string       `bson:"_id"`
	Title              string       `bson:"title"`
	Blocks             []mongoBlock `bson:"blocks"`
	CreatedAt          time.Time    `bson:"created_at"`
	UpdatedAt          time.Time    `bson:"updated_at"`
	IsDeleted          bool         `bson:"is_deleted"`
	DeletedAt          *time.Time   `bson:"deleted_at,omitempty"`
	ParentID           *string      `bson:"parent_id,omitempty"`
	IsPublic           bool         `bson:"is_public"`
	Tags               []string     `bson:"tags"`
	CloudID            *string      `bson:"cloud_id,omitempty"`
	LastSyncedAt       *time.Time   `bson:"last_synced_at,omitempty"`
	NeedsSync          bool         `bson:"needs_sync"`
	TitleCursor        int          `bson:"title_cursor"`
	FocusedBlockID     *string      `bson:"focused_block_id,omitempty"`
	FocusedBlockCursor int          `bson:"focused_block_cursor"`
}

// Properties and children are kept as JSON so values decode the same way as in the SQL store.
type mongoBlock struct {
	ID         string    `bson:"id"`
	Type       string    `bson:"type"`
	Content    string    `bson:"content"`
	Properties string    `bson:"properties_json"`
	Children   string    `bson:"children_json"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
	NeedsSync  bool      `bson:"needs_sync"`
}

// OpenMongo connects to uri and uses the pages collection of database.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		database = "pocketpages"
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		pages:  client.Database(database).Collection(mongoPagesCollection),
	}, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	var doc mongoPage
	err := s.pages.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get page %s: %w", id, domain.ErrPageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return doc.toDomain()
}

// PageVersion returns the stored updated time of a page.
func (s *MongoStore) PageVersion(ctx context.Context, id string) (time.Time, error) {
	var doc struct {
		UpdatedAt time.Time `bson:"updated_at"`
	}
	err := s.pages.FindOne(ctx, bson.D{{Key: "_id", Value: id}},
		options.FindOne().SetProjection(bson.D{{Key: "updated_at", Value: 1}})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, fmt.Errorf("page version %s: %w", id, domain.ErrPageNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("page version: %w", err)
	}
	return doc.UpdatedAt, nil
}

func (s *MongoStore) SavePage(ctx context.Context, p *domain.Page) error {
	if p == nil {
		return fmt.Errorf("save page: nil page")
	}
	doc, err := mongoPageFrom(p)
	if err != nil {
		return err
	}
	_, err = s.pages.ReplaceOne(ctx, bson.D{{Key: "_id", Value: p.ID}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}
	return nil
}

func (s *MongoStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.pages.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: bson.D{
		{Key: "is_deleted", Value: true},
		{Key: "deleted_at", Value: time.Now().UTC()},
	}}})
	if err != nil {
		return fmt.Errorf("soft delete page: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("page %s: %w", id, domain.ErrPageNotFound)
	}
	return nil
}

func (s *MongoStore) Restore(ctx context.Context, id string) error {
	res, err := s.pages.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "is_deleted", Value: false},
			{Key: "updated_at", Value: time.Now().UTC()},
		}},
		{Key: "$unset", Value: bson.D{{Key: "deleted_at", Value: ""}}},
	})
	if err != nil {
		return fmt.Errorf("restore page: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("page %s: %w", id, domain.ErrPageNotFound)
	}
	return nil
}

func (s *MongoStore) Purge(ctx context.Context, id string) error {
	res, err := s.pages.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("purge page: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("page %s: %w", id, domain.ErrPageNotFound)
	}
	return nil
}

func (s *MongoStore) ListActive(ctx context.Context) ([]domain.Page, error) {
	return s.list(ctx, false, "updated_at")
}

func (s *MongoStore) ListDeleted(ctx context.Context) ([]domain.Page, error) {
	return s.list(ctx, true, "deleted_at")
}

func (s *MongoStore) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.pages.DeleteMany(ctx, bson.D{
		{Key: "is_deleted", Value: true},
		{Key: "deleted_at", Value: bson.D{{Key: "$lt", Value: cutoff.UTC()}}},
	})
	if err != nil {
		return 0, fmt.Errorf("purge trash: %w", err)
	}
	return int(res.DeletedCount), nil
}

func (s *MongoStore) list(ctx context.Context, deleted bool, sortKey string) ([]domain.Page, error) {
	cur, err := s.pages.Find(ctx,
		bson.D{{Key: "is_deleted", Value: deleted}},
		options.Find().SetSort(bson.D{{Key: sortKey, Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	var docs []mongoPage
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode pages: %w", err)
	}

	pages := make([]domain.Page, 0, len(docs))
	for _, d := range docs {
		p, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	return pages, nil
}

func mongoPageFrom(p *domain.Page) (*mongoPage, error) {
	doc := &mongoPage{
		ID:                 p.ID,
		Title:              p.Title,
		Blocks:             make([]mongoBlock, 0, len(p.Blocks)),
		CreatedAt:          p.CreatedAt.UTC(),
		UpdatedAt:          p.UpdatedAt.UTC(),
		IsDeleted:          p.IsDeleted,
		DeletedAt:          p.DeletedAt,
		ParentID:           p.ParentID,
		IsPublic:           p.IsPublic,
		Tags:               nonNilTags(p.Tags),
		CloudID:            p.CloudID,
		LastSyncedAt:       p.LastSyncedAt,
		NeedsSync:          p.NeedsSync,
		TitleCursor:        p.TitleCursorPosition,
		FocusedBlockID:     p.FocusedBlockID,
		FocusedBlockCursor: p.FocusedBlockCursorPosition,
	}
	for _, b := range p.Blocks {
		props, err := json.Marshal(nonNilProperties(b.Properties))
		if err != nil {
			return nil, fmt.Errorf("encode block %s properties: %w", b.ID, err)
		}
		children, err := json.Marshal(nonNilBlocks(b.Children))
		if err != nil {
			return nil, fmt.Errorf("encode block %s children: %w", b.ID, err)
		}
		doc.Blocks = append(doc.Blocks, mongoBlock{
			ID:         b.ID,
			Type:       string(b.Type),
			Content:    b.Content,
			Properties: string(props),
			Children:   string(children),
			CreatedAt:  b.CreatedAt.UTC(),
			UpdatedAt:  b.UpdatedAt.UTC(),
			NeedsSync:  b.NeedsSync,
		})
	}
	return doc, nil
}

func (d mongoPage) toDomain() (*domain.Page, error) {
	p := &domain.Page{
		ID:                         d.ID,
		Title:                      d.Title,
		Blocks:                     make([]domain.Block, 0, len(d.Blocks)),
		CreatedAt:                  d.CreatedAt,
		UpdatedAt:                  d.UpdatedAt,
		IsDeleted:                  d.IsDeleted,
		DeletedAt:                  d.DeletedAt,
		ParentID:                   d.ParentID,
		IsPublic:                   d.IsPublic,
		Tags:                       nonNilTags(d.Tags),
		CloudID:                    d.CloudID,
		LastSyncedAt:               d.LastSyncedAt,
		NeedsSync:                  d.NeedsSync,
		TitleCursorPosition:        d.TitleCursor,
		FocusedBlockID:             d.FocusedBlockID,
		FocusedBlockCursorPosition: d.FocusedBlockCursor,
	}
	for _, mb := range d.Blocks {
		b := domain.Block{
			ID:         mb.ID,
			Type:       domain.BlockType(mb.Type),
			Content:    mb.Content,
			Properties: domain.Properties{},
			Children:   []domain.Block{},
			CreatedAt:  mb.CreatedAt,
			UpdatedAt:  mb.UpdatedAt,
			NeedsSync:  mb.NeedsSync,
		}
		if mb.Properties != "" {
			if err := json.Unmarshal([]byte(mb.Properties), &b.Properties); err != nil {
				return nil, fmt.Errorf("decode block %s properties: %w", b.ID, err)
			}
		}
		if mb.Children != "" {
			if err := json.Unmarshal([]byte(mb.Children), &b.Children); err != nil {
				return nil, fmt.Errorf("decode block %s children: %w", b.ID, err)
			}
		}
		p.Blocks = append(p.Blocks, b)
	}
	return p, nil
}
