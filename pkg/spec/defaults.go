package spec

// Default values applied to optional fields before validation.
// Charset and collation defaults follow the source templates.
const (
	DefaultCharset             = "utf32"
	DefaultCollation           = "utf32_general_ci"
	DefaultBackupRetentionDays = 7
	DefaultDiagnosticName      = "diagnosticSettings"
)

// ApplyDefaults fills unset optional fields in place.
//
// Defaulting is kept in one pass so the rules stay testable in isolation
// instead of being scattered across composition code.
func ApplyDefaults(s *ServerSpec) {
	if s.CreateMode == "" {
		s.CreateMode = CreateModeDefault
	}
	if s.MinimalTLSVersion == "" {
		s.MinimalTLSVersion = TLSVersion12
	}
	if s.PublicNetworkAccess == "" {
		s.PublicNetworkAccess = ToggleEnabled
	}
	if s.GeoRedundantBackup == "" {
		s.GeoRedundantBackup = ToggleDisabled
	}
	if s.InfrastructureEncryption == "" {
		s.InfrastructureEncryption = ToggleDisabled
	}
	if s.Version == "" {
		s.Version = EngineVersion821
	}
	if s.BackupRetentionDays == 0 {
		s.BackupRetentionDays = DefaultBackupRetentionDays
	}

	for i := range s.Databases {
		applyDatabaseDefaults(&s.Databases[i])
	}
	if s.DiagnosticSettings != nil && s.DiagnosticSettings.Name == "" {
		s.DiagnosticSettings.Name = DefaultDiagnosticName
	}
}

// applyDatabaseDefaults fills charset and collation independently, so a
// database that overrides one still receives the default for the other.
func applyDatabaseDefaults(db *Database) {
	if db.Charset == "" {
		db.Charset = DefaultCharset
	}
	if db.Collation == "" {
		db.Collation = DefaultCollation
	}
}
