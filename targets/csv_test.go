package targets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/types"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCSVSourceLoads(t *testing.T) {
	path := writeCSV(t, `username,url,niche,status
alice,https://instagram.com/alice,fitness,
bob,,travel,sent
,https://instagram.com/carol,,
`)
	src := NewCSVSource(path, zap.NewNop())

	list, err := src.Targets(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, "alice", list[0].Username)
	assert.Equal(t, "fitness", list[0].Niche)
	assert.Equal(t, types.TargetUnset, list[0].Status)

	assert.Equal(t, types.TargetSent, list[1].Status, "已有状态应保留，由编排器跳过")

	assert.Equal(t, "https://instagram.com/carol", list[2].Key(), "只有 URL 的行也有效")
}

func TestCSVSourceSkipsRowsWithoutIdentifier(t *testing.T) {
	path := writeCSV(t, `username,url,niche,status
alice,,,
,,,
bob,,,
`)
	src := NewCSVSource(path, zap.NewNop())

	list, err := src.Targets(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].Username)
	assert.Equal(t, "bob", list[1].Username)
}

func TestCSVSourceHeaderless(t *testing.T) {
	path := writeCSV(t, "alice,,,\nbob,,,\n")
	src := NewCSVSource(path, zap.NewNop())

	list, err := src.Targets(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2, "无表头文件也应可读")
}

func TestCSVSourceUpdateStatusWritesBack(t *testing.T) {
	path := writeCSV(t, `username,url,niche,status
alice,,fitness,
bob,,travel,
`)
	src := NewCSVSource(path, zap.NewNop())
	ctx := context.Background()

	_, err := src.Targets(ctx)
	require.NoError(t, err)

	require.NoError(t, src.UpdateStatus(ctx, types.TargetRecord{Username: "alice"}, types.TargetSent))

	// 重新读文件验证落盘
	fresh := NewCSVSource(path, zap.NewNop())
	list, err := fresh.Targets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, types.TargetSent, list[0].Status)
	assert.Equal(t, types.TargetUnset, list[1].Status)
	assert.Equal(t, "travel", list[1].Niche, "写回不得丢其他列")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "username,url,niche,status\n"), "写回应带表头")
}

func TestCSVSourceUpdateUnknownTarget(t *testing.T) {
	path := writeCSV(t, "username,url,niche,status\nalice,,,\n")
	src := NewCSVSource(path, zap.NewNop())

	err := src.UpdateStatus(context.Background(), types.TargetRecord{Username: "ghost"}, types.TargetSent)
	assert.Error(t, err)
}

func TestCSVSourceMissingFile(t *testing.T) {
	src := NewCSVSource(filepath.Join(t.TempDir(), "absent.csv"), zap.NewNop())
	_, err := src.Targets(context.Background())
	assert.Error(t, err)
}

func TestStaticSource(t *testing.T) {
	ctx := context.Background()
	src := NewStaticSource([]types.TargetRecord{
		{Username: "alice"},
		{Username: "bob"},
	})

	list, err := src.Targets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, src.UpdateStatus(ctx, list[0], types.TargetSkip))
	list, err = src.Targets(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.TargetSkip, list[0].Status)

	// 返回的是副本，改它不影响内部状态
	list[1].Status = types.TargetDone
	again, err := src.Targets(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.TargetUnset, again[1].Status)
}
