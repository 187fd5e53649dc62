package fmp4

import "github.com/chengang12345632/media-test-sub001/internal/segment"

func (c *Converter) ftypPayload() []byte {
	w := &boxWriter{}
	w.Write([]byte("iso5")) // major brand
	w.putU32(0)             // minor version
	w.Write([]byte("iso5")) // compatible brand
	w.Write([]byte("iso6"))
	w.Write([]byte("mp41"))
	return w.Bytes()
}

func (c *Converter) moovPayload() []byte {
	w := &boxWriter{}
	writeBox(w, typeMvhd, c.mvhdPayload())
	writeBox(w, typeTrak, c.trakPayload())
	writeBox(w, typeMvex, c.mvexPayload())
	return w.Bytes()
}

func (c *Converter) mvhdPayload() []byte {
	w := &boxWriter{}
	w.putU8(1)               // version
	w.putU24(0)               // flags
	w.putU64(0)               // creation_time
	w.putU64(0)               // modification_time
	w.putU32(c.cfg.Timescale) // timescale
	w.putU64(0)               // duration (unknown, live fragment stream)
	w.putU32(0x00010000)      // rate 1.0
	w.putU16(0x0100)          // volume 1.0
	w.putU16(0)               // reserved
	w.putU64(0)               // reserved
	w.putU32(0x00010000)      // unity matrix
	w.putU32(0)
	w.putU32(0)
	w.putU32(0)
	w.putU32(0x00010000)
	w.putU32(0)
	w.putU32(0)
	w.putU32(0)
	w.putU32(0x40000000)
	w.putZeros(6 * 4) // pre_defined
	w.putU32(2)       // next_track_ID
	return w.Bytes()
}

func (c *Converter) trakPayload() []byte {
	w := &boxWriter{}
	writeBox(w, typeTkhd, c.tkhdPayload())
	writeBox(w, typeMdia, c.mdiaPayload())
	return w.Bytes()
}

func (c *Converter) tkhdPayload() []byte {
	w := &boxWriter{}
	w.putU8(1)
	w.putU24(0x000007) // track enabled, in movie, in preview
	w.putU64(0)
	w.putU64(0)
	w.putU32(1) // track_ID
	w.putU32(0)
	w.putU64(0) // duration
	w.putU64(0)
	w.putU16(0) // layer
	w.putU16(0) // alternate_group
	w.putU16(0) // volume (video track)
	w.putU16(0)
	w.putU32(0x00010000)
	w.putU32(0)
	w.putU32(0)
	w.putU32(0)
	w.putU32(0x00010000)
	w.putU32(0)
	w.putU32(0)
	w.putU32(0)
	w.putU32(0x40000000)
	w.putU32(uint32(c.cfg.Width) << 16)
	w.putU32(uint32(c.cfg.Height) << 16)
	return w.Bytes()
}

func (c *Converter) mdiaPayload() []byte {
	w := &boxWriter{}
	writeBox(w, typeMdhd, c.mdhdPayload())
	writeBox(w, typeHdlr, c.hdlrPayload())
	writeBox(w, typeMinf, c.minfPayload())
	return w.Bytes()
}

func (c *Converter) mdhdPayload() []byte {
	w := &boxWriter{}
	w.putU8(1)
	w.putU24(0)
	w.putU64(0)
	w.putU64(0)
	w.putU32(c.cfg.Timescale)
	w.putU64(0)
	w.putU16(0x55c4) // language "und"
	w.putU16(0)
	return w.Bytes()
}

func (c *Converter) hdlrPayload() []byte {
	w := &boxWriter{}
	w.putU8(0)
	w.putU24(0)
	w.putU32(0)
	w.Write([]byte("vide"))
	w.putU32(0)
	w.putU32(0)
	w.putU32(0)
	w.Write([]byte("VideoHandler\x00"))
	return w.Bytes()
}

func (c *Converter) minfPayload() []byte {
	w := &boxWriter{}
	writeBox(w, typeVmhd, c.vmhdPayload())
	writeBox(w, typeDinf, c.dinfPayload())
	writeBox(w, typeStbl, c.stblPayload())
	return w.Bytes()
}

func (c *Converter) vmhdPayload() []byte {
	w := &boxWriter{}
	w.putU8(0)
	w.putU24(1)
	w.putU16(0) // graphicsmode
	w.putU16(0) // opcolor[0..2]
	w.putU16(0)
	w.putU16(0)
	return w.Bytes()
}

func (c *Converter) dinfPayload() []byte {
	url := &boxWriter{}
	url.putU8(0)
	url.putU24(1) // self-contained

	dref := &boxWriter{}
	dref.putU8(0)
	dref.putU24(0)
	dref.putU32(1) // entry_count
	writeBox(dref, typeURL, url.Bytes())

	w := &boxWriter{}
	writeBox(w, typeDref, dref.Bytes())
	return w.Bytes()
}

func (c *Converter) stblPayload() []byte {
	w := &boxWriter{}
	writeBox(w, typeStsd, c.stsdPayload())

	stts := &boxWriter{}
	stts.putU8(0)
	stts.putU24(0)
	stts.putU32(0) // entry_count
	writeBox(w, typeStts, stts.Bytes())

	stsc := &boxWriter{}
	stsc.putU8(0)
	stsc.putU24(0)
	stsc.putU32(0)
	writeBox(w, typeStsc, stsc.Bytes())

	stsz := &boxWriter{}
	stsz.putU8(0)
	stsz.putU24(0)
	stsz.putU32(0) // sample_size
	stsz.putU32(0) // sample_count
	writeBox(w, typeStsz, stsz.Bytes())

	stco := &boxWriter{}
	stco.putU8(0)
	stco.putU24(0)
	stco.putU32(0)
	writeBox(w, typeStco, stco.Bytes())

	return w.Bytes()
}

func (c *Converter) stsdPayload() []byte {
	avc1 := &boxWriter{}
	avc1.putU48(0) // reserved
	avc1.putU16(1) // data_reference_index
	avc1.putU16(0)
	avc1.putU16(0)
	avc1.putU32(0)
	avc1.putU32(0)
	avc1.putU32(0)
	avc1.putU16(c.cfg.Width)
	avc1.putU16(c.cfg.Height)
	avc1.putU32(0x00480000) // horizresolution 72dpi
	avc1.putU32(0x00480000) // vertresolution 72dpi
	avc1.putU32(0)
	avc1.putU16(1)    // frame_count
	avc1.putZeros(32) // compressorname
	avc1.putU16(0x0018)
	avc1.putU16(0xffff)
	writeBox(avc1, typeAvcC, c.avcCPayload())

	w := &boxWriter{}
	w.putU8(0)
	w.putU24(0)
	w.putU32(1) // entry_count
	writeBox(w, typeAvc1, avc1.Bytes())
	return w.Bytes()
}

// avcCPayload emits a placeholder AVCDecoderConfigurationRecord with no
// embedded SPS/PPS: lengthSizeMinusOne=0xFF signals "unknown" to lenient
// MSE demuxers, and numOfSequenceParameterSets=0 to the strict ones.
// Segments therefore carry SPS/PPS inline (Annex-B style) in their NAL
// stream rather than out-of-band.
func (c *Converter) avcCPayload() []byte {
	w := &boxWriter{}
	w.putU8(1)    // configurationVersion
	w.putU8(0x64) // AVCProfileIndication (High)
	w.putU8(0x00) // profile_compatibility
	w.putU8(0x1f) // AVCLevelIndication
	w.putU8(0xff) // lengthSizeMinusOne (sentinel, no length-prefixed NALs)
	w.putU8(0xe0) // numOfSequenceParameterSets (high bits reserved, count 0)
	w.putU8(0)    // numOfPictureParameterSets
	return w.Bytes()
}

func (c *Converter) mvexPayload() []byte {
	trex := &boxWriter{}
	trex.putU8(0)
	trex.putU24(0)
	trex.putU32(1) // track_ID
	trex.putU32(1) // default_sample_description_index
	trex.putU32(0)
	trex.putU32(0)
	trex.putU32(0)

	w := &boxWriter{}
	writeBox(w, typeTrex, trex.Bytes())
	return w.Bytes()
}

func (c *Converter) moofPayload(seg *segment.VideoSegment) []byte {
	mfhd := &boxWriter{}
	mfhd.putU8(0)
	mfhd.putU24(0)
	mfhd.putU32(c.sequenceNumber)

	w := &boxWriter{}
	writeBox(w, typeMfhd, mfhd.Bytes())
	writeBox(w, typeTraf, c.trafPayload(seg))
	return w.Bytes()
}

// trafPayload builds tfhd+tfdt+trun. data_offset in trun is computed from
// the actual sizes of the boxes preceding mdat's payload within this
// fragment, not a fixed estimate: moof header (8) + mfhd (8+8) + traf
// header (8) + tfhd (8+8) + tfdt (8+12) + trun (8+len(trunPayload)) + mdat
// header (8).
func (c *Converter) trafPayload(seg *segment.VideoSegment) []byte {
	tfhd := &boxWriter{}
	tfhd.putU8(0)
	tfhd.putU24(0x020000) // default-base-is-moof
	tfhd.putU32(1)        // track_ID

	decodeTime := uint64(seg.Timestamp * float64(c.cfg.Timescale))
	tfdt := &boxWriter{}
	tfdt.putU8(1)
	tfdt.putU24(0)
	tfdt.putU64(decodeTime)

	sampleDuration := uint32(seg.Duration * float64(c.cfg.Timescale))

	tfhdBoxLen := 8 + tfhd.Len()
	tfdtBoxLen := 8 + tfdt.Len()
	trunPayloadLen := 1 + 3 + 4 + 4 + 4 // version+flags, sample_count, data_offset, sample_duration
	trunBoxLen := 8 + trunPayloadLen
	mfhdBoxLen := 8 + 8 // version+flags+sequence_number
	trafBoxLen := 8 + tfhdBoxLen + tfdtBoxLen + trunBoxLen
	moofPayloadLen := mfhdBoxLen + trafBoxLen
	moofBoxLen := 8 + moofPayloadLen
	dataOffset := uint32(moofBoxLen + 8) // mdat header precedes the sample bytes

	trun := &boxWriter{}
	trun.putU8(0)
	trun.putU24(0x000101) // data-offset-present, sample-duration-present
	trun.putU32(1)        // sample_count
	trun.putU32(dataOffset)
	trun.putU32(sampleDuration)

	w := &boxWriter{}
	writeBox(w, typeTfhd, tfhd.Bytes())
	writeBox(w, typeTfdt, tfdt.Bytes())
	writeBox(w, typeTrun, trun.Bytes())
	return w.Bytes()
}
