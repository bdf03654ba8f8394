// Package internaldefs holds the metric names, help strings and latency
// bucket bounds that every exporter publishes, and flattens an engine reading
// into exporter-neutral families.
//
// Exporters must not invent names of their own: a rename here changes the
// Prometheus and OTel output together.
package internaldefs
