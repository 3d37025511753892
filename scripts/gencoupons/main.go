// Command gencoupons writes sample gzipped coupon rule files for local runs.
//
// Each line is CODE,KIND,VALUE[,MIN_SUBTOTAL]. A code repeated in a later
// file overrides the earlier definition, which rules2.gz uses to raise
// SUMMER10 to 15 percent.
package main

import (
	"compress/gzip"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

func main() {
	dataDir := "data/coupons"
	if len(os.Args) > 1 {
		dataDir = os.Args[1]
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	files := []struct {
		name  string
		rules []string
	}{
		{
			name: "rules1.gz",
			rules: []string{
				"SUMMER10,percent,10",
				"WELCOME25,fixed,25,100",
				"FREESHIP,fixed,29.90,50",
			},
		},
		{
			name: "rules2.gz",
			rules: []string{
				"SUMMER10,percent,15",
				"VIP2026,percent,20,500",
			},
		},
	}

	for _, f := range files {
		filePath := filepath.Join(dataDir, f.name)

		if err := writeRuleFile(filePath, f.rules); err != nil {
			log.Fatalf("Failed to create %s: %v", f.name, err)
		}

		fmt.Printf("Created %s with %d rules\n", filePath, len(f.rules))
	}

	fmt.Printf("\nSet COUPON_FILES=%s,%s to load them in order.\n",
		filepath.Join(dataDir, files[0].name), filepath.Join(dataDir, files[1].name))
}

func writeRuleFile(filePath string, rules []string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)

	for _, rule := range rules {
		if _, err := fmt.Fprintf(gzipWriter, "%s\n", rule); err != nil {
			return fmt.Errorf("failed to write rule: %w", err)
		}
	}

	return gzipWriter.Close()
}
