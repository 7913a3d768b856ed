package db

// Object is a block or a tree.
type Object interface {
	GetPath() *Path
	Read(buf []byte) (n int, err error)
	Close() error
	Size() (int64, error)
}

// Block holds one encoded record or commit.
type Block struct {
	Db *Db
	*WORM
}

func (block *Block) GetPath() *Path {
	return block.Path
}

func (block Block) New(db *Db, file *WORM) *Block {
	block.Db = db
	block.WORM = file
	return &block
}
