package dummydb

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/file"
)

type fileRepository struct {
	db *DB
}

var _ file.Repository = (*fileRepository)(nil) // interface compliance check

func NewFileRepository(db *DB) *fileRepository {
	return &fileRepository{db: db}
}

func (db *DB) getFile(id int) (file.File, bool) {
	f, ok := db.files[id]
	if !ok {
		return file.File{}, false
	}
	out := *f
	if owner, ok := db.users[out.OwnerID]; ok {
		o := *owner
		out.Owner = &o
	}
	return out, true
}

// fileChain walks the polymorphic target up to its course. Callers hold at
// least the read lock.
func (db *DB) fileChain(f file.File) (courseID, teacherID int) {
	switch f.TargetKind {
	case file.TargetCourse:
		courseID = f.TargetID
	case file.TargetModule:
		if mod, ok := db.modules[f.TargetID]; ok {
			courseID = mod.CourseID
		}
	case file.TargetAssignment:
		if asg, ok := db.assignments[f.TargetID]; ok {
			if mod, ok := db.modules[asg.ModuleID]; ok {
				courseID = mod.CourseID
			}
		}
	}
	if crs, ok := db.courses[courseID]; ok {
		teacherID = crs.TeacherID
	} else {
		courseID = 0
	}
	return courseID, teacherID
}

func (repo *fileRepository) CreateFile(ctx context.Context, f file.File) (file.File, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	f.ID = repo.db.nextPK()
	f.CreatedAt, f.UpdatedAt = now, now
	stored := f
	stored.Owner = nil
	repo.db.files[f.ID] = &stored
	out, _ := repo.db.getFile(f.ID)
	return out, nil
}

func (repo *fileRepository) GetFileByID(ctx context.Context, id int) (file.File, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if f, ok := repo.db.getFile(id); ok {
		return f, nil
	}
	return file.File{}, file.ErrNotFound
}

func (repo *fileRepository) FilterFiles(ctx context.Context, scope access.ListScope, page core.Pagination) ([]file.File, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matches []file.File
	for id := range repo.db.files {
		f, _ := repo.db.getFile(id)
		courseID, teacherID := repo.db.fileChain(f)
		enrolledLeg := scope.EnrolledStudentID != 0 && repo.db.isEnrolled(scope.EnrolledStudentID, courseID)
		if enrolledLeg && scope.TeacherAuthoredOnly {
			enrolledLeg = f.OwnerID == teacherID
		}
		switch {
		case scope.All:
		case scope.AuthorID != 0 && f.OwnerID == scope.AuthorID:
		case scope.TeacherID != 0 && teacherID == scope.TeacherID:
		case enrolledLeg:
		default:
			continue
		}
		matches = append(matches, f)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })

	lo, hi := paginate(len(matches), page)
	return matches[lo:hi], len(matches), nil
}

func (repo *fileRepository) UpdateFile(ctx context.Context, f file.File) (file.File, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.files[f.ID]; !ok {
		return file.File{}, file.ErrNotFound
	}
	f.UpdatedAt = time.Now().UTC()
	stored := f
	stored.Owner = nil
	repo.db.files[f.ID] = &stored
	out, _ := repo.db.getFile(f.ID)
	return out, nil
}

func (repo *fileRepository) DeleteFile(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.files[id]; !ok {
		return file.ErrNotFound
	}
	delete(repo.db.files, id)
	return nil
}

// memStorage implements file.Storage in memory for tests.
type memStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

var _ file.Storage = (*memStorage)(nil)

func NewMemStorage() *memStorage {
	return &memStorage{blobs: make(map[string][]byte)}
}

func (s *memStorage) Save(ctx context.Context, path string, content io.Reader) (int64, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, content)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = buf.Bytes()
	return n, nil
}

func (s *memStorage) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, path)
	return nil
}

// Blob returns stored contents; tests assert on it.
func (s *memStorage) Blob(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[path]
	return b, ok
}
