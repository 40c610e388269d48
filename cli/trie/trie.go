/*
Package trie contains CLI commands working with the persistent trie: the
trie is opened using the configured storage, every modifying command
commits the trie and stores the new root.
*/
package trie

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/mptrie/cli/options"
	"github.com/nspcc-dev/mptrie/pkg/config"
	"github.com/nspcc-dev/mptrie/pkg/core/mpt"
	"github.com/nspcc-dev/mptrie/pkg/core/storage"
	"github.com/nspcc-dev/mptrie/pkg/crypto/hash"
	"github.com/nspcc-dev/mptrie/pkg/util"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// storeVersion is the storage schema version.
const storeVersion = "mptrie/1"

var (
	rootKey    = append(storage.DataMPTAux.Bytes(), "root"...)
	hashKey    = append(storage.DataMPTAux.Bytes(), "hash"...)
	versionKey = storage.SYSVersion.Bytes()
)

var stringFlag = cli.BoolFlag{
	Name:  "string, s",
	Usage: "treat keys and values as strings instead of hex",
}

// NewCommands returns trie commands.
func NewCommands() []cli.Command {
	commonFlags := append([]cli.Flag{stringFlag}, options.Common...)
	return []cli.Command{
		{
			Name:      "put",
			Usage:     "Put key-value pair into the trie",
			UsageText: "put [--string] [--config-file file] <key> <value>",
			Action:    put,
			Flags:     commonFlags,
		},
		{
			Name:      "get",
			Usage:     "Get value by key",
			UsageText: "get [--string] [--config-file file] <key>",
			Action:    get,
			Flags:     commonFlags,
		},
		{
			Name:      "delete",
			Usage:     "Delete key from the trie",
			UsageText: "delete [--string] [--config-file file] <key>",
			Action:    del,
			Flags:     commonFlags,
		},
		{
			Name:      "put-value",
			Usage:     "Put value into the trie by its digest",
			UsageText: "put-value [--string] [--config-file file] <value>",
			Action:    putValue,
			Flags:     commonFlags,
		},
		{
			Name:      "root",
			Usage:     "Print the current trie root",
			UsageText: "root [--config-file file]",
			Action:    printRoot,
			Flags:     options.Common,
		},
		{
			Name:      "find",
			Usage:     "List key-value pairs with the given key prefix",
			UsageText: "find [--string] [--from key] [--max n] [--config-file file] [<prefix>]",
			Action:    find,
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "from",
					Usage: "key suffix to start after",
				},
				cli.IntFlag{
					Name:  "max",
					Usage: "maximum number of pairs to list (0 for all)",
				},
			}, commonFlags...),
		},
		{
			Name:      "count",
			Usage:     "Print the number of key-value pairs",
			UsageText: "count [--config-file file]",
			Action:    count,
			Flags:     options.Common,
		},
		{
			Name:      "proof",
			Usage:     "Get proof for the key",
			UsageText: "proof [--string] [--binary] [--out file] [--config-file file] <key>",
			Action:    getProof,
			Flags: append([]cli.Flag{
				outFlag,
				binaryFlag,
			}, commonFlags...),
		},
		{
			Name:      "verify",
			Usage:     "Verify proof (JSON or binary)",
			UsageText: "verify --in file [--string] [--value value] [--config-file file]",
			Action:    verifyProof,
			Flags: append([]cli.Flag{
				inFlag,
				cli.StringFlag{
					Name:  "value",
					Usage: "expected value, proof must show key presence with this value",
				},
				cli.BoolFlag{
					Name:  "absent",
					Usage: "proof must show key absence",
				},
			}, commonFlags...),
		},
		{
			Name:      "dump",
			Usage:     "Dump all key-value pairs as JSON lines",
			UsageText: "dump [--out file] [--config-file file]",
			Action:    dump,
			Flags: append([]cli.Flag{
				outFlag,
			}, options.Common...),
		},
		{
			Name:      "restore",
			Usage:     "Put key-value pairs from the dump into the trie",
			UsageText: "restore --in file [--config-file file]",
			Action:    restore,
			Flags: append([]cli.Flag{
				inFlag,
			}, options.Common...),
		},
	}
}

// env is an opened trie with its storage. All the changes are buffered in
// store and written into the persistent storage at once by commit.
type env struct {
	cfg    config.Config
	store  *storage.MemCachedStore
	trie   *mpt.Trie
	hasher hash.Func
	log    *zap.Logger
	str    bool
}

func newEnv(ctx *cli.Context) (*env, error) {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return nil, err
	}
	log, _, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return nil, err
	}
	h, err := cfg.TrieConfiguration.HashFunc()
	if err != nil {
		return nil, err
	}
	ps, err := storage.NewStore(cfg.ApplicationConfiguration.DBConfiguration)
	if err != nil {
		return nil, fmt.Errorf("could not initialize storage: %w", err)
	}
	store := storage.NewMemCachedStore(ps)
	e := &env{
		cfg:    cfg,
		store:  store,
		hasher: h,
		log:    log,
		str:    ctx.Bool("string"),
	}
	root, err := e.init()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	e.trie = mpt.NewTrieFromRoot(root, mpt.Config{
		Store:     store,
		Hash:      h,
		CacheSize: cfg.TrieConfiguration.CacheSize,
		Log:       log,
	})
	log.Debug("trie opened",
		zap.String("db", cfg.ApplicationConfiguration.DBConfiguration.Type),
		zap.Stringer("root", root))
	return e, nil
}

// init checks storage metadata and returns the stored root. Metadata is
// written for empty storage.
func (e *env) init() (util.Uint256, error) {
	hashName := e.hashName()
	ver, err := e.store.Get(versionKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		err = e.store.PutChangeSet(map[string][]byte{
			string(versionKey): []byte(storeVersion),
			string(hashKey):    []byte(hashName),
		})
		if err != nil {
			return util.Uint256{}, err
		}
		_, err = e.store.Persist()
		return util.Uint256{}, err
	}
	if err != nil {
		return util.Uint256{}, err
	}
	if string(ver) != storeVersion {
		return util.Uint256{}, fmt.Errorf("storage version mismatch: %q, expected %q", ver, storeVersion)
	}
	stored, err := e.store.Get(hashKey)
	if err != nil {
		return util.Uint256{}, fmt.Errorf("can't get storage hash function: %w", err)
	}
	if string(stored) != hashName {
		return util.Uint256{}, fmt.Errorf("storage uses %s hash function, %s is configured", stored, hashName)
	}
	r, err := e.store.Get(rootKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return util.Uint256{}, nil
	}
	if err != nil {
		return util.Uint256{}, err
	}
	return util.Uint256DecodeBytesBE(r)
}

// hashName returns the canonical name of the configured digest function.
func (e *env) hashName() string {
	name := strings.ToLower(e.cfg.TrieConfiguration.Hash)
	if name == "" {
		name = hash.Keccak256Name
	}
	return name
}

// commit persists the trie nodes and its root in one change set. Empty trie
// has no root record.
func (e *env) commit() (util.Uint256, error) {
	root, err := e.trie.Commit()
	if err != nil {
		return root, err
	}
	if root.IsZero() {
		err = e.store.Delete(rootKey)
	} else {
		err = e.store.Put(rootKey, root.BytesBE())
	}
	if err != nil {
		return root, err
	}
	n, err := e.store.Persist()
	if err != nil {
		return root, err
	}
	e.log.Info("trie committed", zap.Stringer("root", root), zap.Int("keys", n))
	return root, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.log.Error("failed to close storage", zap.Error(err))
	}
	_ = e.log.Sync()
}

// key converts the key argument into the trie key.
func (e *env) key(arg string) ([]byte, error) {
	k, err := e.bytes(arg)
	if err != nil {
		return nil, err
	}
	if e.cfg.TrieConfiguration.SecureKeys {
		k = mpt.SecureKey(e.hasher, k)
	}
	return k, nil
}

func (e *env) bytes(arg string) ([]byte, error) {
	if e.str {
		return []byte(arg), nil
	}
	return decodeHex(arg)
}

func (e *env) format(b []byte) string {
	if e.str {
		return string(b)
	}
	return hex.EncodeToString(b)
}

func decodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}

// withEnv runs f for the opened trie, all errors are converted to exit
// errors.
func withEnv(ctx *cli.Context, nargs int, f func(*env, cli.Args) error) error {
	args := ctx.Args()
	if len(args) != nargs {
		return cli.NewExitError(fmt.Errorf("expected %d arguments, got %d", nargs, len(args)), 1)
	}
	e, err := newEnv(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer e.close()
	if err := f(e, args); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func put(ctx *cli.Context) error {
	return withEnv(ctx, 2, func(e *env, args cli.Args) error {
		k, err := e.key(args[0])
		if err != nil {
			return err
		}
		v, err := e.bytes(args[1])
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return mpt.ErrValueTooSmall
		}
		if err := e.trie.Put(k, v); err != nil {
			return err
		}
		return e.printCommit(ctx)
	})
}

func get(ctx *cli.Context) error {
	return withEnv(ctx, 1, func(e *env, args cli.Args) error {
		k, err := e.key(args[0])
		if err != nil {
			return err
		}
		v, err := e.trie.Get(k)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, e.format(v))
		return nil
	})
}

func del(ctx *cli.Context) error {
	return withEnv(ctx, 1, func(e *env, args cli.Args) error {
		k, err := e.key(args[0])
		if err != nil {
			return err
		}
		if err := e.trie.Delete(k); err != nil {
			return err
		}
		return e.printCommit(ctx)
	})
}

func putValue(ctx *cli.Context) error {
	return withEnv(ctx, 1, func(e *env, args cli.Args) error {
		v, err := e.bytes(args[0])
		if err != nil {
			return err
		}
		d, err := mpt.NewSecureTrie(e.trie).PutValue(v)
		if err != nil {
			return err
		}
		if _, err := e.commit(); err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, d.StringBE())
		return nil
	})
}

func (e *env) printCommit(ctx *cli.Context) error {
	root, err := e.commit()
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, root.StringBE())
	return nil
}

func printRoot(ctx *cli.Context) error {
	return withEnv(ctx, 0, func(e *env, _ cli.Args) error {
		fmt.Fprintln(ctx.App.Writer, e.trie.StateRoot().StringBE())
		return nil
	})
}

func count(ctx *cli.Context) error {
	return withEnv(ctx, 0, func(e *env, _ cli.Args) error {
		n, err := e.trie.Count()
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, n)
		return nil
	})
}

func find(ctx *cli.Context) error {
	nargs := 0
	if ctx.NArg() > 0 {
		nargs = 1
	}
	return withEnv(ctx, nargs, func(e *env, args cli.Args) error {
		var (
			prefix, from []byte
			err          error
		)
		if len(args) > 0 {
			if prefix, err = e.bytes(args[0]); err != nil {
				return err
			}
		}
		if s := ctx.String("from"); s != "" {
			if from, err = e.bytes(s); err != nil {
				return err
			}
		}
		kvs, err := e.trie.Find(prefix, from, ctx.Int("max"))
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		for _, kv := range kvs {
			fmt.Fprintf(&buf, "%s: %s\n", e.format(kv.Key), e.format(kv.Value))
		}
		_, err = ctx.App.Writer.Write(buf.Bytes())
		return err
	})
}
