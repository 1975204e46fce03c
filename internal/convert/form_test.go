package convert

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site2apk/internal/blob"
	"site2apk/internal/validate"
)

func TestFormKeepsPreviousFileOnRejection(t *testing.T) {
	var form Form

	archive := blob.FromBytes("site.zip", "application/zip", siteZip(t))
	require.NoError(t, form.SetArchive(archive))

	err := form.SetArchive(blob.FromBytes("site.tar", "application/x-tar", []byte("x")))
	require.ErrorIs(t, err, validate.ErrWrongArchiveType)

	icon := blob.FromBytes("icon.png", "image/png", iconPNG(t, 512))
	require.NoError(t, form.SetIcon(context.Background(), icon))

	err = form.SetIcon(context.Background(), blob.FromBytes("icon.jpg", "image/jpeg", []byte("x")))
	require.ErrorIs(t, err, validate.ErrWrongIconType)

	err = form.SetIcon(context.Background(), blob.FromBytes("small.png", "image/png", iconPNG(t, 64)))
	require.ErrorIs(t, err, validate.ErrWrongIconDimensions)

	form.SetName("Test App")
	form.SetVersion("1.0.0")

	req := form.Request()
	assert.Same(t, archive, req.Archive)
	assert.Same(t, icon, req.Icon)
	assert.True(t, req.Complete())
}

func TestFormIncompleteByDefault(t *testing.T) {
	var form Form

	assert.False(t, form.Request().Complete())
}
