package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SourcesDir       string
	Port             string
	RequestTimeout   int
	RequestBudget    int
	FetchDelayMs     int
	DiscoverMaxPages int
	DiscoverMaxURLs  int
	GraceDays        int
	ChromeRemoteURL  string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
