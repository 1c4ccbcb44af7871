package capture

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/structs"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/wlansim/sim/id"
)

// CSVWriter stores records into a CSV file.
type CSVWriter struct {
	path string
	file *os.File

	records    []Record
	bufferSize int
}

// NewCSVWriter creates a new CSVWriter. The file is path with a ".csv"
// suffix. An empty path picks a unique name.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// Filename returns the name of the CSV file.
func (w *CSVWriter) Filename() string {
	return w.path + ".csv"
}

// Init creates the CSV file and writes the header. It panics if the file
// already exists.
func (w *CSVWriter) Init() {
	if w.path == "" {
		w.path = "wlansim_capture_" + id.NewRunID()
	}

	filename := w.Filename()

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	w.file = file

	fmt.Fprintln(file, strings.Join(structs.Names(Record{}), ", "))

	atexit.Register(func() {
		w.Flush()
	})
}

// Write buffers a record. Full buffers are flushed.
func (w *CSVWriter) Write(r Record) {
	w.records = append(w.records, r)
	if len(w.records) >= w.bufferSize {
		w.Flush()
	}
}

// Flush writes the buffered records to the file.
func (w *CSVWriter) Flush() {
	for _, r := range w.records {
		fmt.Fprintf(w.file,
			"%.10f, %s, %d, %d, %s, %d, %d, %d, %d, %t, %s, %.4f, %.10f, %s\n",
			r.Time,
			r.Direction,
			r.Node,
			r.FrameID,
			r.Kind,
			r.Src,
			r.Dst,
			r.Size,
			r.Seq,
			r.Retry,
			r.Category,
			r.PowerDbm,
			r.Airtime,
			r.Mode,
		)
	}

	w.records = nil
}

// Close flushes the buffered records and closes the file.
func (w *CSVWriter) Close() error {
	w.Flush()

	return w.file.Close()
}

var _ Writer = (*CSVWriter)(nil)
