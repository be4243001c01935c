package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"podcast/internal/domain"
	"podcast/internal/errs"
)

var (
	bucketProcessed = []byte("processed")
	bucketEpisodes  = []byte("episodes")
	bucketMeta      = []byte("meta")
)

// BoltStore records processed feed items and produced episodes.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errs.Wrap(err, errs.CodeEpisodeStoreFailure, "create store directory", errs.FieldPath(path))
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeEpisodeStoreFailure, "open bolt db", errs.FieldPath(path))
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketProcessed, bucketEpisodes, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errs.Wrap(err, errs.CodeEpisodeStoreFailure, "create buckets", errs.FieldPath(path))
	}

	return &BoltStore{db: db}, nil
}

type processedMeta struct {
	At int64 `json:"at"`
}

type episodeMeta struct {
	GUID           string   `json:"guid"`
	Title          string   `json:"title"`
	SourceGUID     string   `json:"source_guid"`
	SourceURL      string   `json:"source_url"`
	AudioPath      string   `json:"audio_path"`
	TranscriptPath string   `json:"transcript_path"`
	Lessons        []string `json:"lessons"`
	Keywords       []string `json:"keywords"`
	Context        []string `json:"context"`
	Script         string   `json:"script,omitempty"`
	ShowNotes      string   `json:"show_notes,omitempty"`
	PublishedAt    int64    `json:"published_at"`
}

func episodeKey(number int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(number))
	return key
}

func (s *BoltStore) IsProcessed(guid string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketProcessed).Get([]byte(guid)) != nil
		return nil
	})
	return found, err
}

func (s *BoltStore) MarkProcessed(guid string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(processedMeta{At: time.Now().Unix()})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketProcessed).Put([]byte(guid), data)
	})
	return errs.Wrap(err, errs.CodeEpisodeStoreFailure, "mark processed", errs.Field("guid", guid))
}

// NextEpisodeNumber returns one more than the highest recorded number, or 1.
func (s *BoltStore) NextEpisodeNumber() (int, error) {
	next := 1
	err := s.db.View(func(tx *bbolt.Tx) error {
		if k, _ := tx.Bucket(bucketEpisodes).Cursor().Last(); k != nil {
			next = int(binary.BigEndian.Uint64(k)) + 1
		}
		return nil
	})
	return next, err
}

func (s *BoltStore) PutEpisode(ep domain.Episode) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(toMeta(ep))
		if err != nil {
			return err
		}
		return tx.Bucket(bucketEpisodes).Put(episodeKey(ep.Number), data)
	})
	return errs.Wrap(err, errs.CodeEpisodeStoreFailure, "put episode", errs.Field("number", ep.Number))
}

func (s *BoltStore) GetEpisode(number int) (domain.Episode, error) {
	var ep domain.Episode
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEpisodes).Get(episodeKey(number))
		if data == nil {
			return errs.New(errs.CodeEpisodeNotFound, "episode not found", errs.Field("number", number))
		}
		var meta episodeMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		ep = fromMeta(number, meta)
		return nil
	})
	return ep, err
}

// ListEpisodes returns all episodes by ascending number.
func (s *BoltStore) ListEpisodes() ([]domain.Episode, error) {
	var episodes []domain.Episode
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEpisodes).ForEach(func(k, v []byte) error {
			var meta episodeMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			episodes = append(episodes, fromMeta(int(binary.BigEndian.Uint64(k)), meta))
			return nil
		})
	})
	return episodes, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func toMeta(ep domain.Episode) episodeMeta {
	return episodeMeta{
		GUID:           ep.GUID,
		Title:          ep.Title,
		SourceGUID:     ep.SourceGUID,
		SourceURL:      ep.SourceURL,
		AudioPath:      ep.AudioPath,
		TranscriptPath: ep.TranscriptPath,
		Lessons:        ep.Lessons,
		Keywords:       ep.Keywords,
		Context:        ep.Context,
		Script:         ep.Script,
		ShowNotes:      ep.ShowNotes,
		PublishedAt:    ep.PublishedAt.Unix(),
	}
}

func fromMeta(number int, meta episodeMeta) domain.Episode {
	return domain.Episode{
		Number:         number,
		GUID:           meta.GUID,
		Title:          meta.Title,
		SourceGUID:     meta.SourceGUID,
		SourceURL:      meta.SourceURL,
		AudioPath:      meta.AudioPath,
		TranscriptPath: meta.TranscriptPath,
		Lessons:        meta.Lessons,
		Keywords:       meta.Keywords,
		Context:        meta.Context,
		Script:         meta.Script,
		ShowNotes:      meta.ShowNotes,
		PublishedAt:    time.Unix(meta.PublishedAt, 0),
	}
}
