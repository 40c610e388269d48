package trie

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/nspcc-dev/mptrie/cli/options"
	"github.com/nspcc-dev/mptrie/pkg/core/mpt"
	"github.com/nspcc-dev/mptrie/pkg/crypto/hash"
	"github.com/nspcc-dev/mptrie/pkg/io"
	"github.com/nspcc-dev/mptrie/pkg/util"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var (
	outFlag = cli.StringFlag{
		Name:  "out, o",
		Usage: "output file (stdout if not set)",
	}
	inFlag = cli.StringFlag{
		Name:  "in, i",
		Usage: "input file",
	}
	binaryFlag = cli.BoolFlag{
		Name:  "binary, b",
		Usage: "use binary proof format instead of JSON",
	}
)

// proofMagic starts every binary proof file, it's "MPTP" in little-endian.
const proofMagic uint32 = 0x5054504d

const maxHashNameLen = 32

// ProofFile is a self-contained proof representation, the key is the trie
// key (digest of the user key for secure tries). Hash is the name of the
// digest function the trie uses, configured one is used if it's empty.
type ProofFile struct {
	Hash  string       `json:"hash,omitempty"`
	Root  util.Uint256 `json:"root"`
	Key   string       `json:"key"`
	Proof *mpt.Proof   `json:"proof"`
}

var _ io.Serializable = (*ProofFile)(nil)

// EncodeBinary implements the io.Serializable interface.
func (f *ProofFile) EncodeBinary(w *io.BinWriter) {
	key, err := hex.DecodeString(f.Key)
	if err != nil {
		w.Err = fmt.Errorf("bad key: %w", err)
		return
	}
	w.WriteU32LE(proofMagic)
	w.WriteString(f.Hash)
	w.WriteBytes(f.Root[:])
	w.WriteVarBytes(key)
	f.Proof.EncodeBinary(w)
}

// DecodeBinary implements the io.Serializable interface.
func (f *ProofFile) DecodeBinary(r *io.BinReader) {
	if m := r.ReadU32LE(); r.Err == nil && m != proofMagic {
		r.Err = errors.New("not a binary proof")
		return
	}
	f.Hash = r.ReadString(maxHashNameLen)
	r.ReadBytes(f.Root[:])
	key := r.ReadVarBytes(mpt.MaxKeyLength)
	if r.Err != nil {
		return
	}
	f.Key = hex.EncodeToString(key)
	f.Proof = new(mpt.Proof)
	f.Proof.DecodeBinary(r)
}

func (f *ProofFile) marshal(binary bool) ([]byte, error) {
	if !binary {
		data, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	w := io.NewBufBinWriter()
	f.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

// readProofFile decodes a proof file in any of the supported formats.
func readProofFile(data []byte) (*ProofFile, error) {
	f := new(ProofFile)
	if !bytes.HasPrefix(data, []byte("MPTP")) {
		if err := json.Unmarshal(data, f); err != nil {
			return nil, err
		}
		if f.Proof == nil {
			return nil, errors.New("no proof")
		}
		return f, nil
	}
	r := io.NewBinReaderFromBuf(data)
	f.DecodeBinary(r)
	r.ExpectEOF()
	if r.Err != nil {
		return nil, r.Err
	}
	return f, nil
}

func getProof(ctx *cli.Context) error {
	return withEnv(ctx, 1, func(e *env, args cli.Args) error {
		k, err := e.key(args[0])
		if err != nil {
			return err
		}
		p, err := e.trie.GetProof(k)
		if err != nil {
			return err
		}
		e.log.Debug("proof built",
			zap.Bool("exists", p.Exists),
			zap.Int("nodes", len(p.Nodes)),
			zap.Int("size", p.Size()))
		pf := &ProofFile{
			Hash:  e.hashName(),
			Root:  e.trie.StateRoot(),
			Key:   hex.EncodeToString(k),
			Proof: p,
		}
		data, err := pf.marshal(ctx.Bool("binary"))
		if err != nil {
			return err
		}
		return writeOut(ctx, data)
	})
}

func verifyProof(ctx *cli.Context) error {
	if ctx.NArg() != 0 {
		return cli.NewExitError(fmt.Errorf("unexpected arguments: %v", ctx.Args()), 1)
	}
	in := ctx.String("in")
	if in == "" {
		return cli.NewExitError(errors.New("no proof file specified, use --in"), 1)
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("can't read proof: %w", err), 1)
	}
	pf, err := readProofFile(data)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("can't decode proof: %w", err), 1)
	}
	hashName := pf.Hash
	if hashName == "" {
		cfg, err := options.GetConfigFromContext(ctx)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		hashName = cfg.TrieConfiguration.Hash
	}
	h, err := hash.ByName(hashName)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	key, err := decodeHex(pf.Key)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	v, ok := mpt.VerifyProof(h, pf.Root, key, pf.Proof)
	if !ok {
		return cli.NewExitError(errors.New("invalid proof"), 1)
	}

	e := &env{str: ctx.Bool("string")}
	switch {
	case ctx.Bool("absent") && v != nil:
		return cli.NewExitError(errors.New("key is present"), 1)
	case ctx.IsSet("value"):
		expected, err := e.bytes(ctx.String("value"))
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		if !mpt.Verify(h, pf.Root, key, pf.Proof, expected) {
			return cli.NewExitError(errors.New("value mismatch"), 1)
		}
	}
	if v == nil {
		fmt.Fprintln(ctx.App.Writer, "key is absent")
	} else {
		fmt.Fprintf(ctx.App.Writer, "value: %s\n", e.format(v))
	}
	return nil
}

func writeOut(ctx *cli.Context, data []byte) error {
	out := ctx.String("out")
	if out == "" {
		_, err := ctx.App.Writer.Write(data)
		return err
	}
	return os.WriteFile(out, data, 0o644)
}
