// Package main contains the cli implementation of the replication
// engine. It uses the cobra package for its command/flag structure,
// following the same per-subcommand shape as smf's own cmd/smf tool.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/spf13/cobra"
	"github.com/surrealdb/surrealdb.go"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/replicore/syncengine/internal/checkpoint"
	"github.com/replicore/syncengine/internal/errs"
	"github.com/replicore/syncengine/internal/schema"
	"github.com/replicore/syncengine/internal/sink"
	"github.com/replicore/syncengine/internal/source"
	"github.com/replicore/syncengine/internal/source/csvsource"
	"github.com/replicore/syncengine/internal/source/jsonlsource"
	"github.com/replicore/syncengine/internal/source/kafkasource"
	"github.com/replicore/syncengine/internal/source/mongostream"
	"github.com/replicore/syncengine/internal/source/mysqltrigger"
	"github.com/replicore/syncengine/internal/source/neo4jsource"
	"github.com/replicore/syncengine/internal/source/pglogical"
	"github.com/replicore/syncengine/internal/source/pgtrigger"
	"github.com/replicore/syncengine/internal/uvalue"
)

// commonFlags are shared by every subcommand: where the schema and
// table live, how to reach the sink, and how to behave on the way
// there. Mirrors the flag-struct-per-command shape smf's cmd/smf uses.
type commonFlags struct {
	schemaFile              string
	table                   string
	sinkEndpoint            string
	sinkNamespace           string
	sinkDatabase            string
	sinkUser                string
	sinkPass                string
	batchSize               int
	timeout                 int
	dryRun                  bool
	checkpointDir           string
	checkpointsSurrealTable string
	emitCheckpoints         bool
}

func bindCommonFlags(cmd *cobra.Command, f *commonFlags) {
	cmd.Flags().StringVar(&f.schemaFile, "schema", "", "Path to the TOML schema document (required)")
	cmd.Flags().StringVar(&f.table, "table", "", "Table name to sync (required)")
	cmd.Flags().StringVar(&f.sinkEndpoint, "sink-endpoint", "ws://localhost:8000/rpc", "SurrealDB endpoint")
	cmd.Flags().StringVar(&f.sinkNamespace, "sink-namespace", "replication", "SurrealDB namespace")
	cmd.Flags().StringVar(&f.sinkDatabase, "sink-database", "replication", "SurrealDB database")
	cmd.Flags().StringVar(&f.sinkUser, "sink-user", "root", "SurrealDB username")
	cmd.Flags().StringVar(&f.sinkPass, "sink-pass", "root", "SurrealDB password")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 500, "Rows to read per batch")
	cmd.Flags().IntVar(&f.timeout, "timeout", 300, "Run timeout in seconds")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Read and convert rows without writing to the sink")
	cmd.Flags().StringVar(&f.checkpointDir, "checkpoint-dir", "./checkpoints", "Directory for filesystem checkpoint storage")
	cmd.Flags().StringVar(&f.checkpointsSurrealTable, "checkpoints-surreal-table", "", "Store checkpoints in SurrealDB under this table instead of the filesystem")
	cmd.Flags().BoolVar(&f.emitCheckpoints, "emit-checkpoints", true, "Persist a checkpoint after each run")
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "syncctl",
		Short: "Universal change-data-capture replication engine",
	}

	rootCmd.AddCommand(mysqlCmd())
	rootCmd.AddCommand(postgresCmd())
	rootCmd.AddCommand(csvCmd())
	rootCmd.AddCommand(jsonlCmd())
	rootCmd.AddCommand(mongostreamCmd())
	rootCmd.AddCommand(neo4jsourceCmd())
	rootCmd.AddCommand(kafkasourceCmd())
	rootCmd.AddCommand(pglogicalCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mysqlCmd() *cobra.Command {
	flags := &commonFlags{}
	var dsn string

	cmd := &cobra.Command{Use: "mysql", Short: "Replicate a MySQL table via trigger-based audit logging"}

	full := &cobra.Command{
		Use:   "full",
		Short: "Run a full sync",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMySQLFull(flags, dsn)
		},
	}
	bindCommonFlags(full, flags)
	full.Flags().StringVar(&dsn, "dsn", "", "MySQL DSN (required)")

	incr := &cobra.Command{
		Use:   "incremental",
		Short: "Run an incremental sync from the audit log",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMySQLIncremental(flags, dsn)
		},
	}
	bindCommonFlags(incr, flags)
	incr.Flags().StringVar(&dsn, "dsn", "", "MySQL DSN (required)")

	cmd.AddCommand(full, incr)
	return cmd
}

func runMySQLFull(flags *commonFlags, dsn string) error {
	if err := requireFlags(map[string]string{"--dsn": dsn, "--schema": flags.schemaFile, "--table": flags.table}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	table, err := lookupTable(flags)
	if err != nil {
		return err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("syncctl: open mysql: %w: %w", err, errs.ErrConfiguration)
	}
	defer db.Close()

	if err := mysqltrigger.InstallAuditInfrastructure(ctx, db, table.Name, table.PrimaryKey); err != nil {
		return err
	}

	writer, store, err := buildSink(ctx, flags)
	if err != nil {
		return err
	}
	defer writer.Close(ctx)

	result, err := mysqltrigger.RunFullSync(ctx, db, table, rawTypeHints(table), flags.batchSize, rowSink(flags, writer, table))
	if err != nil {
		return err
	}
	fmt.Printf("mysql full sync: %d rows\n", result.RowsRead)

	if flags.emitCheckpoints {
		return store.Save(ctx, checkpoint.Record{Table: table.Name, Phase: checkpoint.PhaseFullSyncEnd, Point: checkpoint.MySQLCheckpoint{AuditID: 0}, CapturedAt: time.Now()})
	}
	return nil
}

func runMySQLIncremental(flags *commonFlags, dsn string) error {
	if err := requireFlags(map[string]string{"--dsn": dsn, "--schema": flags.schemaFile, "--table": flags.table}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	table, err := lookupTable(flags)
	if err != nil {
		return err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("syncctl: open mysql: %w: %w", err, errs.ErrConfiguration)
	}
	defer db.Close()

	writer, store, err := buildSink(ctx, flags)
	if err != nil {
		return err
	}
	defer writer.Close(ctx)

	from := checkpoint.MySQLCheckpoint{}
	if rec, ok, err := store.Latest(ctx, table.Name, checkpoint.PhaseIncremental); err != nil {
		return err
	} else if ok {
		point, ok := rec.Point.(checkpoint.MySQLCheckpoint)
		if !ok {
			return fmt.Errorf("syncctl: stored checkpoint for table %q is not a mysql checkpoint: %w", table.Name, errs.ErrCheckpointCorrupted)
		}
		from = point
	}

	result, err := mysqltrigger.RunIncrementalSync(ctx, db, table, rawTypeHints(table), from, flags.batchSize, rowSink(flags, writer, table))
	if err != nil {
		return err
	}
	fmt.Printf("mysql incremental sync: %d rows, done=%v\n", result.RowsRead, result.Done)

	if flags.emitCheckpoints && result.NextCheckpoint != nil {
		return store.Save(ctx, checkpoint.Record{Table: table.Name, Phase: checkpoint.PhaseIncremental, Point: result.NextCheckpoint, CapturedAt: time.Now()})
	}
	return nil
}

func postgresCmd() *cobra.Command {
	flags := &commonFlags{}
	var dsn string

	cmd := &cobra.Command{Use: "postgres", Short: "Replicate a PostgreSQL table via trigger-based audit logging"}

	full := &cobra.Command{
		Use:   "full",
		Short: "Run a full sync",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runPostgresFull(flags, dsn)
		},
	}
	bindCommonFlags(full, flags)
	full.Flags().StringVar(&dsn, "dsn", "", "Postgres connection string (required)")

	incr := &cobra.Command{
		Use:   "incremental",
		Short: "Run an incremental sync from the audit log",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runPostgresIncremental(flags, dsn)
		},
	}
	bindCommonFlags(incr, flags)
	incr.Flags().StringVar(&dsn, "dsn", "", "Postgres connection string (required)")

	cmd.AddCommand(full, incr)
	return cmd
}

func runPostgresFull(flags *commonFlags, dsn string) error {
	if err := requireFlags(map[string]string{"--dsn": dsn, "--schema": flags.schemaFile, "--table": flags.table}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	table, err := lookupTable(flags)
	if err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("syncctl: open postgres: %w: %w", err, errs.ErrConfiguration)
	}
	defer pool.Close()

	if err := pgtrigger.InstallAuditInfrastructure(ctx, pool, table.Name, table.PrimaryKey); err != nil {
		return err
	}

	writer, store, err := buildSink(ctx, flags)
	if err != nil {
		return err
	}
	defer writer.Close(ctx)

	result, err := pgtrigger.RunFullSync(ctx, pool, table, rawTypeHints(table), flags.batchSize, rowSink(flags, writer, table))
	if err != nil {
		return err
	}
	fmt.Printf("postgres full sync: %d rows\n", result.RowsRead)

	if flags.emitCheckpoints {
		return store.Save(ctx, checkpoint.Record{Table: table.Name, Phase: checkpoint.PhaseFullSyncEnd, Point: checkpoint.PostgresCheckpoint{AuditID: 0}, CapturedAt: time.Now()})
	}
	return nil
}

func runPostgresIncremental(flags *commonFlags, dsn string) error {
	if err := requireFlags(map[string]string{"--dsn": dsn, "--schema": flags.schemaFile, "--table": flags.table}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	table, err := lookupTable(flags)
	if err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("syncctl: open postgres: %w: %w", err, errs.ErrConfiguration)
	}
	defer pool.Close()

	writer, store, err := buildSink(ctx, flags)
	if err != nil {
		return err
	}
	defer writer.Close(ctx)

	from := checkpoint.PostgresCheckpoint{}
	if rec, ok, err := store.Latest(ctx, table.Name, checkpoint.PhaseIncremental); err != nil {
		return err
	} else if ok {
		point, ok := rec.Point.(checkpoint.PostgresCheckpoint)
		if !ok {
			return fmt.Errorf("syncctl: stored checkpoint for table %q is not a postgres checkpoint: %w", table.Name, errs.ErrCheckpointCorrupted)
		}
		from = point
	}

	result, err := pgtrigger.RunIncrementalSync(ctx, pool, table, rawTypeHints(table), from, flags.batchSize, rowSink(flags, writer, table))
	if err != nil {
		return err
	}
	fmt.Printf("postgres incremental sync: %d rows, done=%v\n", result.RowsRead, result.Done)

	if flags.emitCheckpoints && result.NextCheckpoint != nil {
		return store.Save(ctx, checkpoint.Record{Table: table.Name, Phase: checkpoint.PhaseIncremental, Point: result.NextCheckpoint, CapturedAt: time.Now()})
	}
	return nil
}

func csvCmd() *cobra.Command {
	flags := &commonFlags{}
	var filePath string

	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Load a CSV file as a one-shot full sync",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCSVSync(flags, filePath)
		},
	}
	bindCommonFlags(cmd, flags)
	cmd.Flags().StringVar(&filePath, "file", "", "Path to the CSV file (required)")
	return cmd
}

func runCSVSync(flags *commonFlags, filePath string) error {
	if err := requireFlags(map[string]string{"--file": filePath, "--schema": flags.schemaFile, "--table": flags.table}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	table, err := lookupTable(flags)
	if err != nil {
		return err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("syncctl: open %q: %w: %w", filePath, err, errs.ErrConfiguration)
	}
	defer f.Close()

	writer, _, err := buildSink(ctx, flags)
	if err != nil {
		return err
	}
	defer writer.Close(ctx)

	result, err := csvsource.RunFullSync(ctx, f, table, rowSink(flags, writer, table))
	if err != nil {
		return err
	}
	fmt.Printf("csv full sync: %d rows\n", result.RowsRead)
	return nil
}

func jsonlCmd() *cobra.Command {
	flags := &commonFlags{}
	var filePath string

	cmd := &cobra.Command{
		Use:   "jsonl",
		Short: "Load a JSONL file as a one-shot full sync",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runJSONLSync(flags, filePath)
		},
	}
	bindCommonFlags(cmd, flags)
	cmd.Flags().StringVar(&filePath, "file", "", "Path to the JSONL file (required)")
	return cmd
}

func runJSONLSync(flags *commonFlags, filePath string) error {
	if err := requireFlags(map[string]string{"--file": filePath, "--schema": flags.schemaFile, "--table": flags.table}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	table, err := lookupTable(flags)
	if err != nil {
		return err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("syncctl: open %q: %w: %w", filePath, err, errs.ErrConfiguration)
	}
	defer f.Close()

	writer, _, err := buildSink(ctx, flags)
	if err != nil {
		return err
	}
	defer writer.Close(ctx)

	result, err := jsonlsource.RunFullSync(ctx, f, table, rowSink(flags, writer, table))
	if err != nil {
		return err
	}
	fmt.Printf("jsonl full sync: %d rows\n", result.RowsRead)
	return nil
}

func mongostreamCmd() *cobra.Command {
	flags := &commonFlags{}
	var uri, database string

	cmd := &cobra.Command{Use: "mongo", Short: "Replicate a MongoDB collection via change streams"}

	full := &cobra.Command{
		Use:   "full",
		Short: "Run a full sync",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMongoFull(flags, uri, database)
		},
	}
	bindCommonFlags(full, flags)
	full.Flags().StringVar(&uri, "uri", "", "MongoDB connection URI (required)")
	full.Flags().StringVar(&database, "database", "", "MongoDB database name (required)")

	incr := &cobra.Command{
		Use:   "incremental",
		Short: "Run an incremental sync from the change stream",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMongoIncremental(flags, uri, database)
		},
	}
	bindCommonFlags(incr, flags)
	incr.Flags().StringVar(&uri, "uri", "", "MongoDB connection URI (required)")
	incr.Flags().StringVar(&database, "database", "", "MongoDB database name (required)")

	cmd.AddCommand(full, incr)
	return cmd
}

func runMongoFull(flags *commonFlags, uri, database string) error {
	if err := requireFlags(map[string]string{"--uri": uri, "--database": database, "--schema": flags.schemaFile, "--table": flags.table}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	table, err := lookupTable(flags)
	if err != nil {
		return err
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("syncctl: connect mongo: %w: %w", err, errs.ErrConfiguration)
	}
	defer client.Disconnect(ctx)
	coll := client.Database(database).Collection(table.Name)

	writer, _, err := buildSink(ctx, flags)
	if err != nil {
		return err
	}
	defer writer.Close(ctx)

	result, err := mongostream.RunFullSync(ctx, coll, int32(flags.batchSize), rowSink(flags, writer, table))
	if err != nil {
		return err
	}
	fmt.Printf("mongo full sync: %d rows\n", result.RowsRead)
	return nil
}

func runMongoIncremental(flags *commonFlags, uri, database string) error {
	if err := requireFlags(map[string]string{"--uri": uri, "--database": database, "--schema": flags.schemaFile, "--table": flags.table}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	table, err := lookupTable(flags)
	if err != nil {
		return err
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("syncctl: connect mongo: %w: %w", err, errs.ErrConfiguration)
	}
	defer client.Disconnect(ctx)
	coll := client.Database(database).Collection(table.Name)

	writer, store, err := buildSink(ctx, flags)
	if err != nil {
		return err
	}
	defer writer.Close(ctx)

	from := checkpoint.MongoCheckpoint{}
	if rec, ok, err := store.Latest(ctx, table.Name, checkpoint.PhaseIncremental); err != nil {
		return err
	} else if ok {
		point, ok := rec.Point.(checkpoint.MongoCheckpoint)
		if !ok {
			return fmt.Errorf("syncctl: stored checkpoint for table %q is not a mongo checkpoint: %w", table.Name, errs.ErrCheckpointCorrupted)
		}
		from = point
	}

	result, err := mongostream.RunIncrementalSync(ctx, coll, from, flags.batchSize, rowSink(flags, writer, table))
	if err != nil {
		return err
	}
	fmt.Printf("mongo incremental sync: %d rows, done=%v\n", result.RowsRead, result.Done)

	if flags.emitCheckpoints && result.NextCheckpoint != nil {
		return store.Save(ctx, checkpoint.Record{Table: table.Name, Phase: checkpoint.PhaseIncremental, Point: result.NextCheckpoint, CapturedAt: time.Now()})
	}
	return nil
}

func neo4jsourceCmd() *cobra.Command {
	flags := &commonFlags{}
	var uri, user, pass, database string

	cmd := &cobra.Command{Use: "neo4j", Short: "Replicate a Neo4j label via timestamp polling"}

	full := &cobra.Command{
		Use:   "full",
		Short: "Run a full sync",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runNeo4jFull(flags, uri, user, pass, database)
		},
	}
	bindCommonFlags(full, flags)
	full.Flags().StringVar(&uri, "uri", "", "Neo4j bolt URI (required)")
	full.Flags().StringVar(&user, "user", "neo4j", "Neo4j username")
	full.Flags().StringVar(&pass, "pass", "", "Neo4j password (required)")
	full.Flags().StringVar(&database, "database", "neo4j", "Neo4j database name")

	incr := &cobra.Command{
		Use:   "incremental",
		Short: "Run an incremental sync from the timestamp checkpoint",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runNeo4jIncremental(flags, uri, user, pass, database)
		},
	}
	bindCommonFlags(incr, flags)
	incr.Flags().StringVar(&uri, "uri", "", "Neo4j bolt URI (required)")
	incr.Flags().StringVar(&user, "user", "neo4j", "Neo4j username")
	incr.Flags().StringVar(&pass, "pass", "", "Neo4j password (required)")
	incr.Flags().StringVar(&database, "database", "neo4j", "Neo4j database name")

	cmd.AddCommand(full, incr)
	return cmd
}

func runNeo4jFull(flags *commonFlags, uri, user, pass, database string) error {
	if err := requireFlags(map[string]string{"--uri": uri, "--pass": pass, "--schema": flags.schemaFile, "--table": flags.table}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	table, err := lookupTable(flags)
	if err != nil {
		return err
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, pass, ""))
	if err != nil {
		return fmt.Errorf("syncctl: connect neo4j: %w: %w", err, errs.ErrConfiguration)
	}
	defer driver.Close(ctx)

	writer, _, err := buildSink(ctx, flags)
	if err != nil {
		return err
	}
	defer writer.Close(ctx)

	result, err := neo4jsource.RunFullSync(ctx, driver, database, table.Name, rowSink(flags, writer, table))
	if err != nil {
		return err
	}
	fmt.Printf("neo4j full sync: %d rows\n", result.RowsRead)
	return nil
}

func runNeo4jIncremental(flags *commonFlags, uri, user, pass, database string) error {
	if err := requireFlags(map[string]string{"--uri": uri, "--pass": pass, "--schema": flags.schemaFile, "--table": flags.table}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	table, err := lookupTable(flags)
	if err != nil {
		return err
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, pass, ""))
	if err != nil {
		return fmt.Errorf("syncctl: connect neo4j: %w: %w", err, errs.ErrConfiguration)
	}
	defer driver.Close(ctx)

	writer, store, err := buildSink(ctx, flags)
	if err != nil {
		return err
	}
	defer writer.Close(ctx)

	from := checkpoint.Neo4jCheckpoint{}
	if rec, ok, err := store.Latest(ctx, table.Name, checkpoint.PhaseIncremental); err != nil {
		return err
	} else if ok {
		point, ok := rec.Point.(checkpoint.Neo4jCheckpoint)
		if !ok {
			return fmt.Errorf("syncctl: stored checkpoint for table %q is not a neo4j checkpoint: %w", table.Name, errs.ErrCheckpointCorrupted)
		}
		from = point
	}

	result, err := neo4jsource.RunIncrementalSync(ctx, driver, database, table.Name, from, flags.batchSize, rowSink(flags, writer, table))
	if err != nil {
		return err
	}
	fmt.Printf("neo4j incremental sync: %d rows, done=%v\n", result.RowsRead, result.Done)

	if flags.emitCheckpoints && result.NextCheckpoint != nil {
		return store.Save(ctx, checkpoint.Record{Table: table.Name, Phase: checkpoint.PhaseIncremental, Point: result.NextCheckpoint, CapturedAt: time.Now()})
	}
	return nil
}

func kafkasourceCmd() *cobra.Command {
	flags := &commonFlags{}
	var brokers []string
	var protoDescriptor, protoMessage string

	cmd := &cobra.Command{
		Use:   "kafka",
		Short: "Replicate a Kafka topic of protobuf-encoded row messages",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runKafkaIncremental(flags, brokers, protoDescriptor, protoMessage)
		},
	}
	bindCommonFlags(cmd, flags)
	cmd.Flags().StringSliceVar(&brokers, "brokers", nil, "Kafka broker addresses (required)")
	cmd.Flags().StringVar(&protoDescriptor, "proto-descriptor", "", "Path to a compiled FileDescriptorSet (required)")
	cmd.Flags().StringVar(&protoMessage, "proto-message", "", "Fully-qualified protobuf message name for the topic's rows (required)")
	return cmd
}

func runKafkaIncremental(flags *commonFlags, brokers []string, protoDescriptor, protoMessage string) error {
	if err := requireFlags(map[string]string{"--proto-descriptor": protoDescriptor, "--proto-message": protoMessage, "--schema": flags.schemaFile, "--table": flags.table}); err != nil {
		return err
	}
	if len(brokers) == 0 {
		return fmt.Errorf("syncctl: --brokers is required: %w", errs.ErrConfiguration)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	table, err := lookupTable(flags)
	if err != nil {
		return err
	}

	msgDesc, err := loadMessageDescriptor(protoDescriptor, protoMessage)
	if err != nil {
		return err
	}

	writer, store, err := buildSink(ctx, flags)
	if err != nil {
		return err
	}
	defer writer.Close(ctx)

	from := checkpoint.KafkaCheckpoint{}
	if rec, ok, err := store.Latest(ctx, table.Name, checkpoint.PhaseIncremental); err != nil {
		return err
	} else if ok {
		point, ok := rec.Point.(checkpoint.KafkaCheckpoint)
		if !ok {
			return fmt.Errorf("syncctl: stored checkpoint for table %q is not a kafka checkpoint: %w", table.Name, errs.ErrCheckpointCorrupted)
		}
		from = point
	}

	result, err := kafkasource.RunIncrementalSync(ctx, brokers, table.Name, msgDesc, from, flags.batchSize, rowSink(flags, writer, table))
	if err != nil {
		return err
	}
	fmt.Printf("kafka incremental sync: %d rows, done=%v\n", result.RowsRead, result.Done)

	if flags.emitCheckpoints && result.NextCheckpoint != nil {
		return store.Save(ctx, checkpoint.Record{Table: table.Name, Phase: checkpoint.PhaseIncremental, Point: result.NextCheckpoint, CapturedAt: time.Now()})
	}
	return nil
}

// loadMessageDescriptor resolves msgName against a compiled
// FileDescriptorSet (as produced by `protoc --descriptor_set_out`),
// giving kafkasource a protoreflect.MessageDescriptor without requiring
// generated Go bindings for every table's message type.
func loadMessageDescriptor(path, msgName string) (protoreflect.MessageDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("syncctl: read proto descriptor %q: %w: %w", path, err, errs.ErrConfiguration)
	}
	var fdSet descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(raw, &fdSet); err != nil {
		return nil, fmt.Errorf("syncctl: parse proto descriptor %q: %w: %w", path, err, errs.ErrConfiguration)
	}
	files, err := protodesc.NewFiles(&fdSet)
	if err != nil {
		return nil, fmt.Errorf("syncctl: build descriptor registry: %w: %w", err, errs.ErrConfiguration)
	}
	desc, err := files.FindDescriptorByName(protoreflect.FullName(msgName))
	if err != nil {
		return nil, fmt.Errorf("syncctl: find message %q: %w: %w", msgName, err, errs.ErrConfiguration)
	}
	msgDesc, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("syncctl: %q is not a message descriptor: %w", msgName, errs.ErrConfiguration)
	}
	return msgDesc, nil
}

func pglogicalCmd() *cobra.Command {
	flags := &commonFlags{}
	var dsn, publication, slot string

	cmd := &cobra.Command{
		Use:   "pglogical",
		Short: "Replicate a PostgreSQL table via logical replication (pgoutput)",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runPglogicalIncremental(flags, dsn, publication, slot)
		},
	}
	bindCommonFlags(cmd, flags)
	cmd.Flags().StringVar(&dsn, "dsn", "", "Postgres replication connection string (required)")
	cmd.Flags().StringVar(&publication, "publication", "", "Publication name (required)")
	cmd.Flags().StringVar(&slot, "slot", "", "Replication slot name (required)")
	return cmd
}

func runPglogicalIncremental(flags *commonFlags, dsn, publication, slot string) error {
	if err := requireFlags(map[string]string{"--dsn": dsn, "--publication": publication, "--slot": slot, "--schema": flags.schemaFile, "--table": flags.table}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	table, err := lookupTable(flags)
	if err != nil {
		return err
	}

	connConfig, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("syncctl: parse postgres dsn: %w: %w", err, errs.ErrConfiguration)
	}
	if connConfig.RuntimeParams == nil {
		connConfig.RuntimeParams = map[string]string{}
	}
	connConfig.RuntimeParams["replication"] = "database"

	conn, err := pgconn.ConnectConfig(ctx, connConfig)
	if err != nil {
		return fmt.Errorf("syncctl: connect postgres replication: %w: %w", err, errs.ErrConfiguration)
	}
	defer conn.Close(ctx)

	if err := pglogical.EnsurePublicationAndSlot(ctx, conn, publication, slot, table.Name); err != nil {
		return err
	}

	writer, store, err := buildSink(ctx, flags)
	if err != nil {
		return err
	}
	defer writer.Close(ctx)

	from := checkpoint.PostgresLogicalCheckpoint{LSN: "0/0"}
	if rec, ok, err := store.Latest(ctx, table.Name, checkpoint.PhaseIncremental); err != nil {
		return err
	} else if ok {
		point, ok := rec.Point.(checkpoint.PostgresLogicalCheckpoint)
		if !ok {
			return fmt.Errorf("syncctl: stored checkpoint for table %q is not a postgres-logical checkpoint: %w", table.Name, errs.ErrCheckpointCorrupted)
		}
		from = point
	}

	toRow := rowSink(flags, writer, table)
	changeSink := func(ctx context.Context, change pglogical.DecodedChange) error {
		row, err := pglogicalRow(table, change)
		if err != nil {
			return err
		}
		return toRow(ctx, row)
	}

	result, err := pglogical.RunIncrementalSync(ctx, conn, slot, from, flags.batchSize, changeSink)
	if err != nil {
		return err
	}
	fmt.Printf("pglogical incremental sync: %d rows, done=%v\n", result.RowsRead, result.Done)

	if flags.emitCheckpoints && result.NextCheckpoint != nil {
		return store.Save(ctx, checkpoint.Record{Table: table.Name, Phase: checkpoint.PhaseIncremental, Point: result.NextCheckpoint, CapturedAt: time.Now()})
	}
	return nil
}

// pglogicalRow converts one decoded pgoutput change, whose column values
// are still raw text-format bytes, into a universal Row using table's
// declared field types. A delete change's Columns/Values cover only the
// replica identity (ordinarily the primary key), which is exactly what
// an OpDelete row requires.
func pglogicalRow(table *schema.TableDefinition, change pglogical.DecodedChange) (source.Row, error) {
	values := make([]uvalue.Typed, len(change.Columns))
	for i, col := range change.Columns {
		ft, err := table.FieldType(col)
		if err != nil {
			return source.Row{}, err
		}
		tv, err := uvalue.ParseText(ft, string(change.Values[i]))
		if err != nil {
			return source.Row{}, fmt.Errorf("column %q: %w", col, err)
		}
		values[i] = tv
	}
	op := source.OpUpsert
	if change.Op == "delete" {
		op = source.OpDelete
	}
	return source.Row{Table: table.Name, Columns: change.Columns, Values: values, Op: op}, nil
}

func requireFlags(flags map[string]string) error {
	for name, val := range flags {
		if val == "" {
			return fmt.Errorf("syncctl: %s is required: %w", name, errs.ErrConfiguration)
		}
	}
	return nil
}

func lookupTable(flags *commonFlags) (*schema.TableDefinition, error) {
	sc, err := schema.Load(flags.schemaFile)
	if err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	table, ok := sc.Table(flags.table)
	if !ok {
		return nil, fmt.Errorf("syncctl: schema has no table %q: %w", flags.table, errs.ErrSchemaParse)
	}
	return table, nil
}

// rawTypeHints exposes each field's declared uvalue.Kind under its column
// name, for adapters (mysqltrigger, pgtrigger) that need a raw-type hint
// alongside the live driver value to pick the right conversion branch.
func rawTypeHints(table *schema.TableDefinition) map[string]string {
	hints := make(map[string]string, len(table.Fields))
	for _, f := range table.Fields {
		hints[f.Name] = string(f.Type.Kind)
	}
	return hints
}

func buildSink(ctx context.Context, flags *commonFlags) (sink.Writer, checkpoint.Store, error) {
	db, err := surrealdb.New(flags.sinkEndpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("syncctl: connect surrealdb: %w: %w", err, errs.ErrConfiguration)
	}
	if err := db.Use(ctx, flags.sinkNamespace, flags.sinkDatabase); err != nil {
		return nil, nil, fmt.Errorf("syncctl: select surrealdb namespace/database: %w: %w", err, errs.ErrConfiguration)
	}
	if _, err := db.SignIn(ctx, surrealdb.Auth{Username: flags.sinkUser, Password: flags.sinkPass}); err != nil {
		return nil, nil, fmt.Errorf("syncctl: sign in to surrealdb: %w: %w", err, errs.ErrConfiguration)
	}

	var writer sink.Writer = sink.NewSurrealWriter(db)
	if flags.dryRun {
		writer = &dryRunWriter{}
	}

	var store checkpoint.Store
	if flags.checkpointsSurrealTable != "" {
		store = checkpoint.NewSurrealStore(db, flags.checkpointsSurrealTable)
	} else {
		store = checkpoint.NewFileStore(flags.checkpointDir)
	}
	return writer, store, nil
}

// rowSink adapts a single converted source.Row into a sink write,
// keyed by the target table's declared primary key. An OpDelete row
// carries only its primary-key columns (source.Row's doc comment) and
// is routed to Writer.Delete instead of Writer.Upsert.
func rowSink(flags *commonFlags, writer sink.Writer, table *schema.TableDefinition) source.RowSink {
	return func(ctx context.Context, row source.Row) error {
		if row.Op == source.OpDelete {
			return writer.Delete(ctx, row.Table, row.Values)
		}
		return writer.Upsert(ctx, []sink.Row{{
			Table:      row.Table,
			Columns:    row.Columns,
			Values:     row.Values,
			PrimaryKey: table.PrimaryKey,
		}})
	}
}

// dryRunWriter discards every write, used when --dry-run is set so a
// full read/convert pass can be exercised without touching the sink.
type dryRunWriter struct{}

func (*dryRunWriter) Upsert(context.Context, []sink.Row) error                 { return nil }
func (*dryRunWriter) Delete(context.Context, string, []uvalue.Typed) error     { return nil }
func (*dryRunWriter) Close(context.Context) error                              { return nil }
