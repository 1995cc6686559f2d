// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

package genomes

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/HamzaMbareche/MAGs-IBD/table"
	"github.com/pkg/errors"
)

// Membership assigns each genome to the representative of its
// cluster.
type Membership struct {
	Genomes         []string
	Representatives []string
}

func readColumn(name, index, column string) (*table.Table, int, error) {

	cfg := table.Config{Sep: ',', IndexName: index}
	t, err := table.ReadTable(name, cfg, table.ReadOptions{}, -1)
	if err != nil {
		return nil, 0, err
	}
	j := t.ColumnIndex(column)
	if j < 0 {
		return nil, 0, errors.Wrapf(table.ErrMalformedTable, "%s: no column %q", name, column)
	}

	return t, j, nil
}

// GenomeToCluster reads the cluster tables written by dRep next to
// drepDir and maps every clustered genome to the representative of
// its secondary cluster.  A genome whose cluster has no
// representative is mapped to the empty string.
func GenomeToCluster(drepDir string) (*Membership, error) {

	tables := filepath.Join(drepDir, "..", "data_tables")

	cdb, cj, err := readColumn(filepath.Join(tables, "Cdb.csv"), "genome", "secondary_cluster")
	if err != nil {
		return nil, err
	}

	wdb, wj, err := readColumn(filepath.Join(tables, "Wdb.csv"), "cluster", "genome")
	if err != nil {
		return nil, err
	}

	winner := make(map[string]string, wdb.NumRows())
	for i, cluster := range wdb.Index {
		winner[cluster] = wdb.Data[i][wj]
	}

	m := &Membership{}
	for i, genome := range cdb.Index {
		m.Genomes = append(m.Genomes, genome)
		m.Representatives = append(m.Representatives, winner[cdb.Data[i][cj]])
	}

	return m, nil
}

// WriteBinMap writes the genome to MAG table of the clustered
// genomes.  Rows are sorted by MAG name, genomes whose representative
// was not renamed get the missing value and come last.
func WriteBinMap(name, drepDir string, ren *Renaming, missing string) error {

	m, err := GenomeToCluster(drepDir)
	if err != nil {
		return err
	}

	t := &table.Table{
		IndexName: "genome",
		Columns:   []string{"MAG"},
	}

	type row struct {
		genome, mag string
		known       bool
	}
	var rows []row
	for i, g := range m.Genomes {
		rep := strings.TrimSuffix(m.Representatives[i], ".fasta")
		mag, ok := ren.Lookup(rep)
		if !ok {
			mag = missing
		}
		rows = append(rows, row{strings.TrimSuffix(g, ".fasta"), mag, ok})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].known != rows[j].known {
			return rows[i].known
		}
		return rows[i].mag < rows[j].mag
	})

	for _, r := range rows {
		t.Index = append(t.Index, r.genome)
		t.Data = append(t.Data, []string{r.mag})
	}

	return table.WriteFile(name, t, table.Config{}, table.WriteOptions{})
}

// RenameQuality restricts the genome quality table to the renamed
// bins, in renaming order, and replaces the bin identifiers by the
// new names.
func RenameQuality(in, out string, ren *Renaming) error {

	cfg := table.Config{}
	q, err := table.ReadTable(in, cfg, table.ReadOptions{}, -1)
	if err != nil {
		return err
	}

	pos := make(map[string]int, q.NumRows())
	for i, id := range q.Index {
		pos[id] = i
	}

	r := &table.Table{
		IndexName: q.IndexName,
		Columns:   q.Columns,
	}
	for k, bin := range ren.Bins {
		i, ok := pos[bin]
		if !ok {
			return errors.Wrapf(ErrUnknownGenome, "%s: %s", in, bin)
		}
		r.Index = append(r.Index, ren.Names[k])
		r.Data = append(r.Data, q.Data[i])
	}

	return table.WriteFile(out, r, cfg, table.WriteOptions{})
}
