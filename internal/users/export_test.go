package users

// SetSchemaVersion rewrites the recorded schema version.
func SetSchemaVersion(s *Store, version int) error {
	_, err := s.db.Exec("UPDATE schema_version SET version = ?", version)
	return err
}
