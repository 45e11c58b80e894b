package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/knowledgebase"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestBootstrap_SQLite(t *testing.T) {
	cfg := &domain.Config{
		Storage: domain.StorageConfig{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "data", "pg.db")},
		Cache:   domain.CacheConfig{MemorySize: 10, DefaultTTL: time.Minute},
	}

	rt, err := Bootstrap(context.Background(), cfg, quietLogger(), Options{Persistence: true, Cache: true})
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.Patients)
	require.NotNil(t, rt.Analyses)
	require.NoError(t, rt.Health.Health(context.Background()))

	p := &domain.Patient{Name: "Ada", DoctorID: "dr-1"}
	require.NoError(t, rt.Patients.CreatePatient(context.Background(), p))

	a, err := rt.Service.AnalyzeForPatient(context.Background(), p.ID, "s.vcf",
		strings.NewReader("c\t1\trs1\tA\tG\t.\tPASS\tGENE=CYP2C9;STAR=*3\tGT\t0/1\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, a.GenesReported)
}

func TestBootstrap_NoPersistence(t *testing.T) {
	rt, err := Bootstrap(context.Background(), &domain.Config{}, quietLogger(), Options{})
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.Patients)
	assert.Same(t, knowledgebase.Default(), rt.KnowledgeBase)
}

func TestBootstrap_CustomKnowledgeBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, knowledgebase.Default().WriteYAML(f))
	require.NoError(t, f.Close())

	cfg := &domain.Config{KnowledgeBase: domain.KnowledgeBaseConfig{Path: path}}
	rt, err := Bootstrap(context.Background(), cfg, quietLogger(), Options{})
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, knowledgebase.Default().Genes(), rt.KnowledgeBase.Genes())
}

func TestBootstrap_Errors(t *testing.T) {
	_, err := Bootstrap(context.Background(),
		&domain.Config{KnowledgeBase: domain.KnowledgeBaseConfig{Path: "/missing/kb.yaml"}},
		quietLogger(), Options{})
	assert.Error(t, err)

	_, err = Bootstrap(context.Background(),
		&domain.Config{Storage: domain.StorageConfig{Driver: "mongo"}},
		quietLogger(), Options{Persistence: true})
	assert.ErrorContains(t, err, "unsupported storage driver")
}
