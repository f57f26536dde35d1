package restapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveDownloadPathRejectsTraversal(t *testing.T) {
	base := "/data/output"
	_, err := resolveDownloadPath(base, "../../etc", "passwd")
	require.Error(t, err)

	_, err = resolveDownloadPath(base, "nwb_files", "../../../etc/passwd")
	require.Error(t, err)
}

func TestResolveDownloadPathAllowsDescendant(t *testing.T) {
	base := "/data/output"
	path, err := resolveDownloadPath(base, "nwb_files", "session-1.nwb")
	require.NoError(t, err)
	require.Equal(t, "/data/output/nwb_files/session-1.nwb", path)
}

func TestResolveDownloadPathNeutralizesAbsoluteInjection(t *testing.T) {
	base := "/data/output"
	path, err := resolveDownloadPath(base, "", "/etc/passwd")
	require.NoError(t, err)
	require.Equal(t, "/data/output/etc/passwd", path)
}
