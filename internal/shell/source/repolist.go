package source

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
)

// ReadRepoList reads one repository URL per line from path. Blank lines and
// lines starting with '#' are skipped, and repeated URLs keep their first
// position. Lines that are not repository URLs stay in the list marked
// Invalid so they are recorded as failures in input order.
func ReadRepoList(path string) ([]domain.RepositoryRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Op: "ReadRepoList", Err: fmt.Errorf("%w: %v", ErrInputUnreadable, err)}
	}
	defer f.Close()
	return ParseRepoList(f)
}

// ParseRepoList is ReadRepoList over an already open reader.
func ParseRepoList(r io.Reader) ([]domain.RepositoryRef, error) {
	var repos []domain.RepositoryRef
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if seen[raw] {
			continue
		}
		ref, err := domain.NewRepositoryRef(raw, len(repos))
		if err != nil {
			slog.Warn("invalid repository URL in input", "line", line, "value", raw, "error", err)
			ref = domain.InvalidRepositoryRef(raw, len(repos))
		}
		seen[raw] = true
		repos = append(repos, ref)
	}
	if err := scanner.Err(); err != nil {
		return nil, &SourceError{Op: "ReadRepoList", Err: fmt.Errorf("%w: %v", ErrInputUnreadable, err)}
	}
	return repos, nil
}
