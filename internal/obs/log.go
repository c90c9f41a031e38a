package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

// Log output is one JSON object per line on stdout; shipping and
// aggregation belong to the collector, not the process.
var sharedLogger = sync.OnceValue(func() *log.Logger {
	return log.New(os.Stdout, "", 0)
})

// Logger returns the process-wide line logger.
func Logger() *log.Logger {
	return sharedLogger()
}

// LogRequest emits one JSON line built from the given fields.
func LogRequest(fields map[string]any) {
	line, err := json.Marshal(fields)
	if err != nil {
		sharedLogger().Println(`{"level":"error","msg":"dropped unencodable log entry"}`)
		return
	}
	sharedLogger().Println(string(line))
}
