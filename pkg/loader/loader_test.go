package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flavioaiello/mysql-provisioner/pkg/spec"
)

const bareSpecYAML = `
name: test-server
administratorLogin: mysqladmin
administratorLoginPassword: hunter2hunter2
skuName: GP_Gen5_2
storageSizeGB: 32
databases:
  - name: app
firewallRules:
  - name: office
    startIpAddress: 10.0.0.1
    endIpAddress: 10.0.0.10
`

const wrappedSpecYAML = `
apiVersion: dbformysql.azure.com/v1
kind: Server
metadata:
  name: test-server
spec:
  name: test-server
  administratorLogin: mysqladmin
  administratorLoginPassword: hunter2hunter2
  skuName: GP_Gen5_2
  storageSizeGB: 32
`

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadServerSpecBare(t *testing.T) {
	s, err := LoadServerSpec(writeSpec(t, bareSpecYAML))
	require.NoError(t, err)

	assert.Equal(t, "test-server", s.Name)
	assert.Equal(t, "mysqladmin", s.AdministratorLogin)
	assert.Equal(t, int32(32), s.StorageSizeGB)
	require.Len(t, s.FirewallRules, 1)
	assert.Equal(t, "office", s.FirewallRules[0].Name)
}

func TestLoadServerSpecAppliesDefaults(t *testing.T) {
	s, err := LoadServerSpec(writeSpec(t, bareSpecYAML))
	require.NoError(t, err)

	assert.Equal(t, spec.CreateModeDefault, s.CreateMode)
	assert.Equal(t, spec.TLSVersion12, s.MinimalTLSVersion)
	assert.Equal(t, int32(spec.DefaultBackupRetentionDays), s.BackupRetentionDays)

	require.Len(t, s.Databases, 1)
	assert.Equal(t, spec.DefaultCharset, s.Databases[0].Charset)
	assert.Equal(t, spec.DefaultCollation, s.Databases[0].Collation)
}

func TestLoadServerSpecUnwrapsKubernetesStyle(t *testing.T) {
	s, err := LoadServerSpec(writeSpec(t, wrappedSpecYAML))
	require.NoError(t, err)

	assert.Equal(t, "test-server", s.Name)
	assert.Equal(t, "GP_Gen5_2", s.SKUName)
	assert.Equal(t, spec.CreateModeDefault, s.CreateMode)
}

func TestLoadServerSpecNotFound(t *testing.T) {
	_, err := LoadServerSpec(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrSpecNotFound)
}

func TestLoadServerSpecInvalidYAML(t *testing.T) {
	_, err := LoadServerSpec(writeSpec(t, "name: [unclosed"))
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestLoadServerSpecNotAMapping(t *testing.T) {
	_, err := LoadServerSpec(writeSpec(t, ""))
	assert.ErrorIs(t, err, ErrInvalidSpecFormat)
}

func TestLoadServerSpecTooLarge(t *testing.T) {
	padding := make([]byte, MaxSpecFileSizeBytes+1)
	for i := range padding {
		padding[i] = '#'
	}
	path := filepath.Join(t.TempDir(), "big.yaml")
	require.NoError(t, os.WriteFile(path, padding, 0o600))

	_, err := LoadServerSpec(path)
	assert.ErrorIs(t, err, ErrSpecTooLarge)
}
