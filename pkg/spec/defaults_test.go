package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultsServerFields(t *testing.T) {
	s := &ServerSpec{Name: "srv"}

	ApplyDefaults(s)

	assert.Equal(t, CreateModeDefault, s.CreateMode)
	assert.Equal(t, TLSVersion12, s.MinimalTLSVersion)
	assert.Equal(t, ToggleEnabled, s.PublicNetworkAccess)
	assert.Equal(t, ToggleDisabled, s.GeoRedundantBackup)
	assert.Equal(t, ToggleDisabled, s.InfrastructureEncryption)
	assert.Equal(t, EngineVersion821, s.Version)
	assert.Equal(t, int32(DefaultBackupRetentionDays), s.BackupRetentionDays)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	s := &ServerSpec{
		Name:                "srv",
		CreateMode:          CreateModeReplica,
		MinimalTLSVersion:   TLSEnforcementDisabled,
		PublicNetworkAccess: ToggleDisabled,
		Version:             EngineVersion57,
		BackupRetentionDays: 35,
	}

	ApplyDefaults(s)

	assert.Equal(t, CreateModeReplica, s.CreateMode)
	assert.Equal(t, TLSEnforcementDisabled, s.MinimalTLSVersion)
	assert.Equal(t, ToggleDisabled, s.PublicNetworkAccess)
	assert.Equal(t, EngineVersion57, s.Version)
	assert.Equal(t, int32(35), s.BackupRetentionDays)
}

func TestApplyDefaultsDatabases(t *testing.T) {
	tests := []struct {
		name          string
		db            Database
		wantCharset   string
		wantCollation string
	}{
		{
			name:          "bothUnset",
			db:            Database{Name: "db1"},
			wantCharset:   DefaultCharset,
			wantCollation: DefaultCollation,
		},
		{
			name:          "charsetOverridden",
			db:            Database{Name: "db2", Charset: "utf8mb4"},
			wantCharset:   "utf8mb4",
			wantCollation: DefaultCollation,
		},
		{
			name:          "collationOverridden",
			db:            Database{Name: "db3", Collation: "utf8mb4_unicode_ci"},
			wantCharset:   DefaultCharset,
			wantCollation: "utf8mb4_unicode_ci",
		},
		{
			name:          "bothOverridden",
			db:            Database{Name: "db4", Charset: "latin1", Collation: "latin1_general_ci"},
			wantCharset:   "latin1",
			wantCollation: "latin1_general_ci",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &ServerSpec{Name: "srv", Databases: []Database{tt.db}}
			ApplyDefaults(s)

			require.Len(t, s.Databases, 1)
			assert.Equal(t, tt.wantCharset, s.Databases[0].Charset)
			assert.Equal(t, tt.wantCollation, s.Databases[0].Collation)
		})
	}
}

func TestApplyDefaultsDiagnosticName(t *testing.T) {
	s := &ServerSpec{Name: "srv", DiagnosticSettings: &DiagnosticSettings{}}
	ApplyDefaults(s)
	assert.Equal(t, DefaultDiagnosticName, s.DiagnosticSettings.Name)

	named := &ServerSpec{Name: "srv", DiagnosticSettings: &DiagnosticSettings{Name: "audit"}}
	ApplyDefaults(named)
	assert.Equal(t, "audit", named.DiagnosticSettings.Name)
}

func TestCreateModeRequiresSource(t *testing.T) {
	assert.False(t, CreateModeDefault.RequiresSource())
	assert.True(t, CreateModeGeoRestore.RequiresSource())
	assert.True(t, CreateModePointInTimeRestore.RequiresSource())
	assert.True(t, CreateModeReplica.RequiresSource())
}

func TestEnumValid(t *testing.T) {
	assert.True(t, CreateModeDefault.Valid())
	assert.False(t, CreateMode("Restore").Valid())

	assert.True(t, TLSEnforcementDisabled.Valid())
	assert.False(t, TLSVersion("TLS1_3").Valid())

	assert.True(t, ToggleEnabled.Valid())
	assert.False(t, Toggle("On").Valid())

	assert.True(t, EngineVersion821.Valid())
	assert.False(t, EngineVersion("8.0").Valid())
}
