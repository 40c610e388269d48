package trie

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nspcc-dev/mptrie/pkg/core/mpt"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// KVPair represents a key-value pair of the dump.
type KVPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// batchSize is the number of restored pairs committed at once.
const batchSize = 10000

func dump(ctx *cli.Context) error {
	return withEnv(ctx, 0, func(e *env, _ cli.Args) error {
		var w io.Writer = ctx.App.Writer
		if out := ctx.String("out"); out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("error creating file: %w", err)
			}
			defer f.Close()
			w = f
		}
		bw := bufio.NewWriter(w)
		encoder := json.NewEncoder(bw)

		var (
			n    int
			eerr error
		)
		err := e.trie.Walk(func(k, v []byte) bool {
			eerr = encoder.Encode(KVPair{
				Key:   hex.EncodeToString(k),
				Value: hex.EncodeToString(v),
			})
			n++
			return eerr == nil
		})
		if err == nil {
			err = eerr
		}
		if err != nil {
			return err
		}
		e.log.Info("trie dumped", zap.Int("pairs", n))
		return bw.Flush()
	})
}

// restore puts dumped pairs as is, keys aren't transformed even for secure
// tries, so the dump of one trie restores the same trie.
func restore(ctx *cli.Context) error {
	in := ctx.String("in")
	if in == "" {
		return cli.NewExitError(errors.New("no dump file specified, use --in"), 1)
	}
	return withEnv(ctx, 0, func(e *env, _ cli.Args) error {
		f, err := os.Open(in)
		if err != nil {
			return err
		}
		defer f.Close()

		var (
			decoder = json.NewDecoder(bufio.NewReader(f))
			b       mpt.Batch
			total   int
		)
		flush := func() error {
			n, err := e.trie.PutBatch(b)
			total += n
			if err != nil {
				return err
			}
			b = mpt.Batch{}
			_, err = e.commit()
			return err
		}
		for {
			var kv KVPair
			err := decoder.Decode(&kv)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("can't decode pair %d: %w", total+b.Len(), err)
			}
			k, err := decodeHex(kv.Key)
			if err != nil {
				return err
			}
			v, err := decodeHex(kv.Value)
			if err != nil {
				return err
			}
			if len(v) == 0 {
				return fmt.Errorf("empty value for key %s", kv.Key)
			}
			b.Add(k, v)
			if b.Len() >= batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if err := flush(); err != nil {
			return err
		}
		e.log.Info("trie restored", zap.Int("pairs", total))
		fmt.Fprintln(ctx.App.Writer, e.trie.StateRoot().StringBE())
		return nil
	})
}
