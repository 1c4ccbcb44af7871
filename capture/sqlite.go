package capture

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/wlansim/sim/id"
)

// TableName is the table that holds the captured frames.
const TableName = "frames"

// SQLiteWriter is the writer that writes records into an SQLite database.
type SQLiteWriter struct {
	*sql.DB

	path      string
	records   []Record
	batchSize int
}

// NewSQLiteWriter creates a new SQLiteWriter. The database file is path with
// a ".sqlite3" suffix. An empty path picks a unique name.
func NewSQLiteWriter(path string) *SQLiteWriter {
	return &SQLiteWriter{
		path:      path,
		batchSize: 10000,
	}
}

// Filename returns the name of the database file.
func (w *SQLiteWriter) Filename() string {
	return w.path + ".sqlite3"
}

// Init creates the database and the frame table. It panics if the file
// already exists.
func (w *SQLiteWriter) Init() {
	if w.path == "" {
		w.path = "wlansim_capture_" + id.NewRunID()
	}

	filename := w.Filename()

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for capture: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	w.DB = db

	fields := strings.Join(structs.Names(Record{}), ", \n\t")
	w.mustExecute(`CREATE TABLE ` + TableName +
		` (` + "\n\t" + fields + "\n" + `);`)

	atexit.Register(func() { w.Flush() })
}

// Write buffers a record. Full buffers are flushed.
func (w *SQLiteWriter) Write(r Record) {
	w.records = append(w.records, r)

	if len(w.records) >= w.batchSize {
		w.Flush()
	}
}

// Flush writes all the buffered records in one transaction.
func (w *SQLiteWriter) Flush() {
	if len(w.records) == 0 {
		return
	}

	w.mustExecute("BEGIN TRANSACTION")
	defer w.mustExecute("COMMIT TRANSACTION")

	stmt := w.prepareStatement()
	defer stmt.Close()

	for _, r := range w.records {
		_, err := stmt.Exec(structs.Values(r)...)
		if err != nil {
			panic(err)
		}
	}

	w.records = nil
}

// Close flushes the buffered records and closes the database.
func (w *SQLiteWriter) Close() error {
	w.Flush()

	return w.DB.Close()
}

func (w *SQLiteWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}

func (w *SQLiteWriter) prepareStatement() *sql.Stmt {
	n := structs.Names(Record{})
	for i := range n {
		n[i] = "?"
	}

	sqlStr := "INSERT INTO " + TableName +
		" VALUES (" + strings.Join(n, ", ") + ")"

	stmt, err := w.Prepare(sqlStr)
	if err != nil {
		panic(err)
	}

	return stmt
}

var _ Writer = (*SQLiteWriter)(nil)
