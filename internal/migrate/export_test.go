package migrate

var MigrationFiles = migrationFiles
