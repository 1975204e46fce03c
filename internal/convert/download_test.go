package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		suggested, name, version string
		want                     string
	}{
		{"test.apk", "Test App", "1.0.0", "test.apk"},
		{"  ", "Test App", "1.0.0", "Test_App_v1.0.0.apk"},
		{"", "My\tCool   App", " 2.1 ", "My_Cool_App_v2.1.apk"},
		{"", "single", "0.1", "single_v0.1.apk"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.suggested, tt.name, tt.version))
		})
	}
}

func TestDirSaver(t *testing.T) {
	dir := t.TempDir()
	saver := &DirSaver{Dir: dir}

	err := saver.Save(context.Background(), Download{FileName: "app.apk", MIMEType: APKMediaType, Data: []byte("ABC")})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "app.apk"), saver.Written)

	data, err := os.ReadFile(saver.Written)
	require.NoError(t, err)
	assert.Equal(t, []byte("ABC"), data)

	_, err = os.Stat(saver.Written + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestDirSaverKeepsNamesInsideDir(t *testing.T) {
	dir := t.TempDir()
	saver := &DirSaver{Dir: dir}

	require.NoError(t, saver.Save(context.Background(), Download{FileName: "../../etc/evil.apk", Data: []byte("x")}))
	assert.Equal(t, filepath.Join(dir, "evil.apk"), saver.Written)

	assert.Error(t, saver.Save(context.Background(), Download{FileName: "/"}))
}
