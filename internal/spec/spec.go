// Package spec is the shape of pipeline.yml.
package spec

type KafkaSink struct {
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic"`
	RequiredAcks int16    `yaml:"required_acks"`
	Version      string   `yaml:"version"`
}

type sinkConfigs struct {
	Kafka KafkaSink `yaml:"kafka"`
}

type debugSection struct {
	PrintCounter bool `yaml:"print_counter"`
	// TraceRecords turns on the per-record stage trace (debug level).
	TraceRecords bool `yaml:"trace_records"`
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Source struct {
		Kind   string `yaml:"kind"`   // "file" | "kafka"
		Config string `yaml:"config"` // kafka: koanf yaml
		Path   string `yaml:"path"`   // file: JSON lines
	} `yaml:"source"`

	Stage struct {
		Config     string `yaml:"config"`
		Conditions string `yaml:"conditions"`
	} `yaml:"stage"`

	Workers int    `yaml:"workers"`
	OnError string `yaml:"on_error"` // "fail" (default) | "log"

	Sinks       []string     `yaml:"sinks"`
	SinkConfigs sinkConfigs  `yaml:"sink_configs"`
	Debug       debugSection `yaml:"debug"`
}
