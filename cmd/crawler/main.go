// Package main provides the entry point for the linkgraph CLI.
//
// linkgraph crawls a single domain breadth-first from a seed page and writes
// the discovered link graph as a source,target CSV edge list.
//
// Usage:
//
//	linkgraph crawl --seed http://www.caltech.edu/ --domain caltech.edu
//	linkgraph export --db graph.db --output network.csv
package main

func main() {
	Execute()
}
